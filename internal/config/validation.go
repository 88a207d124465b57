package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError lists every invalid settings field
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid settings: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid settings (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func newSettingsValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("clustermethod", func(fl validator.FieldLevel) bool {
		return slices.Contains(ClusteringMethods, fl.Field().String())
	})
	v.RegisterValidation("clustermetric", func(fl validator.FieldLevel) bool {
		return slices.Contains(ClusteringMetrics, fl.Field().String())
	})
	v.RegisterValidation("outputdir", isOutputDirValid)

	// Use settings file key names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// isOutputDirValid accepts bare file names and paths whose directory exists
func isOutputDirValid(fl validator.FieldLevel) bool {
	dir := filepath.Dir(fl.Field().String())
	if dir == "." || dir == "" {
		return true
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Validate checks every settings value up front
func (s *Settings) Validate() error {
	err := newSettingsValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return fmt.Errorf("settings validation failed: %w", err)
	}

	problems := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, formatFieldError(fe))
	}
	return &ValidationError{Problems: problems}
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s is %v but should be at least %s", field, fe.Value(), fe.Param())
	case "max":
		return fmt.Sprintf("%s is %v but should be at most %s", field, fe.Value(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s is %v but should be bigger than %s", field, fe.Value(), fe.Param())
	case "clustermethod":
		return fmt.Sprintf("%s %q is not among the clustering methods: %s", field, fe.Value(), strings.Join(ClusteringMethods, ", "))
	case "clustermetric":
		return fmt.Sprintf("%s %q is not among the clustering metrics: %s", field, fe.Value(), strings.Join(ClusteringMetrics, ", "))
	case "outputdir":
		return fmt.Sprintf("the directory of %s %q doesn't appear to exist", field, fe.Value())
	case "url":
		return fmt.Sprintf("%s %q is not a valid URL", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidateColumns checks settings that depend on the loaded table
func (s *Settings) ValidateColumns(columns []string) error {
	var problems []string
	for _, name := range s.Filtering.ExactMatches {
		if name == s.Filtering.KeyColumn {
			continue
		}
		if !slices.Contains(columns, name) {
			problems = append(problems, fmt.Sprintf("EXACT_MATCHES column %q is not present in the data", name))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
