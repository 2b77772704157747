package utils

import (
	"strings"
	"testing"
)

type validatedRequest struct {
	Email    string `validate:"required,email"`
	Username string `validate:"required,min=1,max=30"`
	Mood     int    `validate:"required,gte=1,lte=5"`
}

func TestValidateStructPasses(t *testing.T) {
	err := ValidateStruct(validatedRequest{
		Email:    "user@test.com",
		Username: "たろう",
		Mood:     3,
	})
	if err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}
}

func TestValidateStructReportsFieldMessages(t *testing.T) {
	err := ValidateStruct(validatedRequest{
		Email:    "not-an-email",
		Username: "",
		Mood:     9,
	})
	if err == nil {
		t.Fatalf("expected validation to fail")
	}

	message := err.Error()
	for _, want := range []string{
		"email must be a valid email",
		"username is required",
		"mood must be at most 5",
	} {
		if !strings.Contains(message, want) {
			t.Fatalf("expected %q in %q", want, message)
		}
	}
}
