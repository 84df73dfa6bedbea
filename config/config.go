// Package config holds the settings of a load run.
package config

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Conninfo is a libpq connection string or URL.
	Conninfo string `validate:"required"`
	// Input is the change stream, one JSON object per line; "-" is stdin.
	Input  string `validate:"required"`
	Append bool
	SRID   int `default:"3857" validate:"oneof=4326 3857"`

	Schema          string `default:"public" validate:"required"`
	Table           string `default:"place" validate:"required"`
	DataTablespace  string
	IndexTablespace string

	// StyleFile is empty for the built in style.
	StyleFile string `validate:"omitempty,file"`
	// MiddleFile keeps node locations and ways in SQLite. Empty keeps them in
	// memory, which is lost after the run.
	MiddleFile string

	CopyQueueLen   int `default:"8" validate:"min=1"`
	CopyBufferSize int `default:"10485760" validate:"min=1024"`
	Verbose        bool
}

// New returns a configuration with every default filled in.
func New() (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration, filling in defaults for fields left
// empty.
func (c *Config) Validate() error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Append && c.MiddleFile == "" {
		return fmt.Errorf("invalid configuration: append mode needs a middle file with the state of the previous run")
	}
	return nil
}
