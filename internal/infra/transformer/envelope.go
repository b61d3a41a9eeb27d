package transformer

import (
	"fmt"
	"io"

	"github.com/UserDirectory/internal/domain"
)

const EnvelopeName = "envelope"

// EnvelopeResponse wraps the user list in an object, as the mock feed's
// /envelope/users route does.
type EnvelopeResponse struct {
	Items *[]domain.User `json:"items"`
}

type EnvelopeTransformer struct{}

func NewEnvelopeTransformer() *EnvelopeTransformer {
	return &EnvelopeTransformer{}
}

func (t *EnvelopeTransformer) Transform(reader io.Reader) ([]domain.User, error) {
	var resp EnvelopeResponse
	if err := decodeOne(reader, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode envelope response: %w", err)
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("failed to decode envelope response: missing items")
	}
	return *resp.Items, nil
}
