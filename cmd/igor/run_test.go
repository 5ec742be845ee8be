// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"igor-cli/internal/bolt"
	"igor-cli/internal/issue"
	"igor-cli/internal/plan"
	"igor-cli/pkg/igorfile"
)

func TestFailureIssue(t *testing.T) {
	t.Parallel()

	_, badName := bolt.Parse("main+option-9lives.rs")
	if badName == nil {
		t.Fatal("fixture bolt name parsed unexpectedly")
	}

	tests := []struct {
		name   string
		err    error
		wantId issue.Id
		wantOk bool
	}{
		{
			name: "missing thundercloud",
			err: &igorfile.MissingThundercloudError{
				Niche:     "demo",
				Directory: "clouds/demo",
			},
			wantId: issue.MissingThundercloudId,
			wantOk: true,
		},
		{
			name:   "bad bolt name from the planner",
			err:    &plan.Error{Path: "main+option-9lives.rs", Err: badName},
			wantId: issue.BadBoltNameId,
			wantOk: true,
		},
		{
			name: "bad invar config",
			err: &igorfile.BadConfigError{
				Path:  "app+config-@.toml",
				Cause: errors.New("unknown write mode"),
			},
			wantId: issue.BadInvarConfigId,
			wantOk: true,
		},
		{
			name:   "permission denied",
			err:    os.ErrPermission,
			wantId: issue.PermissionDeniedId,
			wantOk: true,
		},
		{
			name:   "wrapped error keeps its mapping",
			err:    fmt.Errorf("niche demo: %w", &igorfile.MissingThundercloudError{Niche: "demo"}),
			wantId: issue.MissingThundercloudId,
			wantOk: true,
		},
		{
			name:   "nil error",
			err:    nil,
			wantOk: false,
		},
		{
			name:   "unmapped error",
			err:    errors.New("disk on fire"),
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			id, ok := failureIssue(tt.err)
			if ok != tt.wantOk {
				t.Fatalf("failureIssue(%v) ok = %v, want %v", tt.err, ok, tt.wantOk)
			}
			if ok && id != tt.wantId {
				t.Errorf("failureIssue(%v) = %v, want %v", tt.err, id, tt.wantId)
			}
		})
	}
}
