package model

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/stridegraph/pkg/errors"
)

var validate = validator.New()

// ValidateNode checks a single node: non-empty name, known kind, and both
// endpoints on flows.
func ValidateNode(n Node) error {
	if err := validate.Struct(n); err != nil {
		return errors.New(errors.ErrCodeInvalidNode, "node %q: %s", n.Name, describe(err))
	}
	return nil
}

// ValidateDiagram checks the diagram title and every node.
func ValidateDiagram(d InputDiagram) error {
	if d.Title == "" {
		return errors.New(errors.ErrCodeInvalidNode, "diagram title is required")
	}
	for _, n := range d.Nodes {
		if err := ValidateNode(n); err != nil {
			return errors.New(errors.ErrCodeInvalidNode, "diagram %q: %s", d.Title, errors.UserMessage(err))
		}
	}
	return nil
}

// ValidateCatalog checks every catalog entry. Duplicate titles are allowed;
// see [Catalog.Lookup].
func ValidateCatalog(c Catalog) error {
	for i, t := range c {
		if err := validate.Struct(t); err != nil {
			return errors.New(errors.ErrCodeInvalidCatalog, "threat %d (%q): %s", i, t.Title, describe(err))
		}
	}
	return nil
}

// ValidateConfig checks the configuration and its nested declarations.
func ValidateConfig(c *Config) error {
	if c == nil {
		return errors.New(errors.ErrCodeInvalidConfig, "configuration is missing")
	}
	if err := validate.Struct(c); err != nil {
		return errors.New(errors.ErrCodeInvalidConfig, "%s", describe(err))
	}
	return nil
}

// describe turns the first validator failure into a short message.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	e := verrs[0]
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", e.Namespace(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", e.Namespace(), e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", e.Namespace(), e.Tag())
	}
}
