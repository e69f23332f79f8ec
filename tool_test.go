package taskloop_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/taskloop"
)

func TestToolSpecValidate(t *testing.T) {
	type testCase struct {
		spec    taskloop.ToolSpec
		wantErr error
	}

	runTest := func(tc testCase) func(t *testing.T) {
		return func(t *testing.T) {
			err := tc.spec.Validate()
			if tc.wantErr == nil {
				gt.NoError(t, err)
				return
			}
			gt.True(t, errors.Is(err, tc.wantErr))
		}
	}

	t.Run("valid", runTest(testCase{
		spec: taskloop.ToolSpec{
			Name: "create_file",
			Parameters: map[string]*taskloop.Parameter{
				"file_name":     {Type: taskloop.TypeString},
				"file_contents": {Type: taskloop.TypeString},
			},
			Required: []string{"file_name", "file_contents"},
		},
	}))
	t.Run("no name", runTest(testCase{
		spec:    taskloop.ToolSpec{},
		wantErr: taskloop.ErrInvalidTool,
	}))
	t.Run("required parameter not defined", runTest(testCase{
		spec: taskloop.ToolSpec{
			Name:     "shell_exec",
			Required: []string{"command"},
		},
		wantErr: taskloop.ErrInvalidTool,
	}))
	t.Run("invalid parameter", runTest(testCase{
		spec: taskloop.ToolSpec{
			Name: "shell_exec",
			Parameters: map[string]*taskloop.Parameter{
				"command": {Type: "text"},
			},
		},
		wantErr: taskloop.ErrInvalidParameter,
	}))
}

func TestParameterValidate(t *testing.T) {
	t.Run("object needs properties", func(t *testing.T) {
		gt.Error(t, (&taskloop.Parameter{Type: taskloop.TypeObject}).Validate())
		gt.NoError(t, (&taskloop.Parameter{
			Type:       taskloop.TypeObject,
			Properties: map[string]*taskloop.Parameter{"a": {Type: taskloop.TypeString}},
			Required:   []string{"a"},
		}).Validate())
	})

	t.Run("object required must exist", func(t *testing.T) {
		err := (&taskloop.Parameter{
			Type:       taskloop.TypeObject,
			Properties: map[string]*taskloop.Parameter{"a": {Type: taskloop.TypeString}},
			Required:   []string{"b"},
		}).Validate()
		gt.True(t, errors.Is(err, taskloop.ErrInvalidParameter))
	})

	t.Run("array needs items", func(t *testing.T) {
		gt.Error(t, (&taskloop.Parameter{Type: taskloop.TypeArray}).Validate())
		gt.NoError(t, (&taskloop.Parameter{Type: taskloop.TypeArray, Items: &taskloop.Parameter{Type: taskloop.TypeInteger}}).Validate())
		gt.Error(t, (&taskloop.Parameter{Type: taskloop.TypeArray, Items: &taskloop.Parameter{}}).Validate())
	})

	t.Run("type is required", func(t *testing.T) {
		gt.True(t, errors.Is((&taskloop.Parameter{}).Validate(), taskloop.ErrInvalidParameter))
	})
}
