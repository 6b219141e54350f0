package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrEngine     = errors.New("engine error")
	ErrRepository = errors.New("repository error")
	ErrDebrid     = errors.New("debrid error")
)

func wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrEngine, err)
}

func wrapRepo(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRepository, err)
}

func wrapDebrid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDebrid, err)
}
