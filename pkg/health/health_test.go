package health

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(context.Context) error { return s.err }

func TestCheckerRegistry(t *testing.T) {
	tests := []struct {
		name     string
		checkers []Checker
		want     Status
	}{
		{name: "no checkers", want: StatusHealthy},
		{name: "all healthy", checkers: []Checker{stubChecker{name: "a"}, stubChecker{name: "b"}}, want: StatusHealthy},
		{name: "one failing", checkers: []Checker{stubChecker{name: "a"}, stubChecker{name: "b", err: errors.New("down")}}, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewCheckerRegistry()
			for _, c := range tt.checkers {
				registry.Register(c)
			}

			result := registry.Check(context.Background())
			assert.Equal(t, tt.want, result.Status)
			assert.Len(t, result.Checks, len(tt.checkers))
		})
	}
}

func TestDataDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, NewDataDirChecker(dir).Check(context.Background()))
	assert.Error(t, NewDataDirChecker(filepath.Join(dir, "missing")).Check(context.Background()))
}
