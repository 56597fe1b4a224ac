package validator

import (
	"errors"
	"testing"
)

type stageRequest struct {
	Stage     *string  `json:"pipelineStage,omitempty" validate:"omitempty,oneof=new won"`
	Locations []string `json:"desiredLocations" validate:"dive,max=3"`
	Internal  string   `json:"-" validate:"omitempty,max=1"`
}

func TestDetailsUsesJSONFieldNames(t *testing.T) {
	val := New()
	stage := "archived"

	err := val.Struct(stageRequest{Stage: &stage, Locations: []string{"Lisboa"}})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	details := Details(err)
	if details["pipelineStage"] != "oneof" {
		t.Fatalf("expected pipelineStage oneof, got %v", details)
	}
	if details["desiredLocations[0]"] != "max" {
		t.Fatalf("expected desiredLocations[0] max, got %v", details)
	}
}

func TestDetailsIgnoresOtherErrors(t *testing.T) {
	if got := Details(errors.New("boom")); got != nil {
		t.Fatalf("expected nil details, got %v", got)
	}
}
