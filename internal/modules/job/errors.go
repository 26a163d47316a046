package job

import "errors"

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrDuplicateCode = errors.New("job code already in use")
)
