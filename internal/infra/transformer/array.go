package transformer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/UserDirectory/internal/domain"
)

const ArrayName = "array"

// ArrayTransformer decodes a bare JSON array of users, the shape served by
// json-server style listing endpoints.
type ArrayTransformer struct{}

func NewArrayTransformer() *ArrayTransformer {
	return &ArrayTransformer{}
}

func (t *ArrayTransformer) Transform(reader io.Reader) ([]domain.User, error) {
	var users []domain.User
	if err := decodeOne(reader, &users); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}
	if users == nil {
		// A literal null body is not a list
		return nil, fmt.Errorf("failed to decode user list: body is null")
	}
	return users, nil
}

// decodeOne decodes a single JSON value and rejects anything after it.
func decodeOne(reader io.Reader, v interface{}) error {
	dec := json.NewDecoder(reader)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return errors.New("unexpected data after JSON value")
		}
		return err
	}
	return nil
}
