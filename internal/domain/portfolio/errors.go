package portfolio

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrDomainNotFound indicates no project belongs to the domain.
	ErrDomainNotFound = errors.New("domain not found")
	// ErrProgrammeNotFound indicates no project belongs to the programme.
	ErrProgrammeNotFound = errors.New("programme not found")
	// ErrInvalidInput indicates invalid request input.
	ErrInvalidInput = errors.New("invalid portfolio input")
)
