package transformer

import (
	"fmt"

	"github.com/UserDirectory/internal/domain"
)

// GetTransformer returns the listing body decoder registered under name.
func GetTransformer(name string) (domain.Transformer, error) {
	switch name {
	case ArrayName, "":
		return NewArrayTransformer(), nil
	case EnvelopeName:
		return NewEnvelopeTransformer(), nil
	default:
		return nil, fmt.Errorf("transformer not found: %s", name)
	}
}
