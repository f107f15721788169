package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response string
	Chunks   []string
	Err      error

	LastMessages []Message
	Calls        int
}

func (m *MockClient) Complete(_ context.Context, messages []Message) (string, error) {
	m.Calls++
	m.LastMessages = messages
	return m.Response, m.Err
}

func (m *MockClient) Stream(_ context.Context, messages []Message, onChunk func(string) error) error {
	m.Calls++
	m.LastMessages = messages
	if m.Err != nil {
		return m.Err
	}
	for _, chunk := range m.Chunks {
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}
