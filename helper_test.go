package taskloop_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/taskloop"
	"github.com/m-mizutani/taskloop/mock"
)

// reply produces one model response. cfg is the configuration of the session
// the request was sent on.
type reply func(cfg taskloop.SessionConfig, in []taskloop.Input) (*taskloop.Response, error)

// script is a sequence of replies shared by every session of one client, in
// the order the requests are made.
type script struct {
	t       *testing.T
	replies []reply
	pos     int
	inputs  [][]taskloop.Input
	configs []taskloop.SessionConfig
}

func newScript(t *testing.T, replies ...reply) *script {
	return &script{t: t, replies: replies}
}

func (s *script) calls() int {
	return s.pos
}

func (s *script) client() *mock.LLMClientMock {
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...taskloop.SessionOption) (taskloop.Session, error) {
			cfg := taskloop.NewSessionConfig(options...)
			history := cfg.History().Clone()
			if history == nil {
				history = taskloop.NewHistory()
			}

			return &mock.SessionMock{
				GenerateContentFunc: func(ctx context.Context, input ...taskloop.Input) (*taskloop.Response, error) {
					if s.pos >= len(s.replies) {
						s.t.Errorf("unexpected request #%d", s.pos+1)
						return nil, errors.New("script exhausted")
					}
					r := s.replies[s.pos]
					s.pos++
					s.inputs = append(s.inputs, input)
					s.configs = append(s.configs, cfg)

					resp, err := r(cfg, input)
					if err != nil {
						return nil, err
					}
					msgs, err := taskloop.InputsToMessages(input...)
					if err != nil {
						return nil, err
					}
					history.Append(msgs...)
					history.Append(taskloop.ResponseToMessage(resp))
					return resp, nil
				},
				HistoryFunc: func() *taskloop.History {
					return history.Clone()
				},
			}, nil
		},
	}
}

func textReply(text string) reply {
	return func(taskloop.SessionConfig, []taskloop.Input) (*taskloop.Response, error) {
		return &taskloop.Response{Texts: []string{text}}, nil
	}
}

func callReply(calls ...*taskloop.FunctionCall) reply {
	return func(taskloop.SessionConfig, []taskloop.Input) (*taskloop.Response, error) {
		return &taskloop.Response{FunctionCalls: calls}, nil
	}
}

func failReply(err error) reply {
	return func(taskloop.SessionConfig, []taskloop.Input) (*taskloop.Response, error) {
		return nil, err
	}
}

// doReply runs fn before answering with text, e.g. to create a file the way a
// tool call would have.
func doReply(fn func(), next reply) reply {
	return func(cfg taskloop.SessionConfig, in []taskloop.Input) (*taskloop.Response, error) {
		fn()
		return next(cfg, in)
	}
}

func newRun(task string, plan *taskloop.Plan) *taskloop.RunState {
	return &taskloop.RunState{
		Task:         task,
		Plan:         plan,
		Observations: taskloop.NewHistory(taskloop.Message{Role: taskloop.RoleUser, Text: "Task:\n" + task}),
		Messages:     taskloop.NewHistory(),
	}
}

func inputText(in taskloop.Input) string {
	switch v := in.(type) {
	case taskloop.Text:
		return string(v)
	case taskloop.SystemText:
		return string(v)
	}
	return ""
}

const validPlanJSON = "```json\n" + `{
  "goal": "summarize sales",
  "steps": [
    {"description": "load the data", "status": "pending"},
    {"description": "plot the data", "status": "pending"}
  ]
}` + "\n```"

// failSessions makes the first n NewSession calls of client fail.
func failSessions(client *mock.LLMClientMock, n int) *mock.LLMClientMock {
	next := client.NewSessionFunc
	failed := 0
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, options ...taskloop.SessionOption) (taskloop.Session, error) {
			if failed < n {
				failed++
				return nil, errors.New("session unavailable")
			}
			return next(ctx, options...)
		},
	}
}
