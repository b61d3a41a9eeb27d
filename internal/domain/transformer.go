package domain

import "io"

// Transformer decodes a listing response body into users.
type Transformer interface {
	Transform(reader io.Reader) ([]User, error)
}
