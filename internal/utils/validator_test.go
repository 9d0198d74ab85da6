package utils

import (
	"errors"
	"strings"
	"testing"
)

type signupInput struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name" validate:"required,max=5"`
}

func TestValidatorReportsJSONFieldNames(t *testing.T) {
	t.Parallel()

	v, err := NewValidator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	err = v.Validate(signupInput{Name: "Abdulaziz"})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve) != 2 {
		t.Fatalf("fields = %v, want phone and name", ve)
	}
	if !strings.Contains(ve["phone"], "required") {
		t.Fatalf("phone message = %q", ve["phone"])
	}
	if !strings.HasPrefix(ve["name"], "name") {
		t.Fatalf("name message = %q", ve["name"])
	}
	// Messages are ordered by field name.
	if !strings.HasPrefix(ve.Error(), ve["name"]) {
		t.Fatalf("error = %q", ve.Error())
	}

	if err := v.Validate(signupInput{Phone: "+998901234567", Name: "Ali"}); err != nil {
		t.Fatalf("valid input: %v", err)
	}
}
