package llm

import "context"

// DummyClient returns a canned answer. Useful for running the service
// without provider credentials and for tests.
type DummyClient struct{}

func NewDummyClient() *DummyClient { return &DummyClient{} }

// Name returns the provider identifier.
func (c *DummyClient) Name() string { return "dummy" }

func (c *DummyClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "This is a placeholder answer produced without a language model [1].", nil
}
