package driver

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedRunner struct {
	out []byte
	err error
}

func (c cannedRunner) Output(context.Context, string, ...string) ([]byte, error) {
	return c.out, c.err
}

func TestBrowserVersion(t *testing.T) {
	ctx := context.Background()
	probe := []string{"google-chrome", "--version"}

	tests := []struct {
		name    string
		runner  cannedRunner
		want    string
		wantErr error
	}{
		{name: "linux output", runner: cannedRunner{out: []byte("Google Chrome 120.0.6099.109 \n")}, want: "120.0.6099.109"},
		{name: "registry output", runner: cannedRunner{out: []byte("\r\nHKEY_LOCAL_MACHINE\\SOFTWARE\\...\r\n    pv    REG_SZ    119.0.6045.160\r\n\r\n")}, want: "119.0.6045.160"},
		{name: "unparseable", runner: cannedRunner{out: []byte("Google Chrome dev-build")}, wantErr: ErrBadVersion},
		{name: "empty", runner: cannedRunner{out: []byte("  \n")}, wantErr: ErrBadVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BrowserVersion(ctx, tt.runner, probe, "linux64")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				var ve *VersionError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("non-zero exit is a hard failure", func(t *testing.T) {
		_, err := BrowserVersion(ctx, cannedRunner{err: &exec.ExitError{Stderr: []byte("no display")}}, probe, "linux64")
		var ve *VersionError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "probe browser", ve.Op)
		assert.Contains(t, err.Error(), "no display")
	})

	t.Run("browser missing is a hard failure", func(t *testing.T) {
		_, err := BrowserVersion(ctx, cannedRunner{err: exec.ErrNotFound}, probe, "linux64")
		var ve *VersionError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestDriverVersion(t *testing.T) {
	ctx := context.Background()
	probe := []string{"/opt/chromedriver", "--version"}

	t.Run("parses second token", func(t *testing.T) {
		got, err := DriverVersion(ctx, cannedRunner{out: []byte(driverOutput("120.0.6099.109"))}, probe, "linux64")
		require.NoError(t, err)
		assert.Equal(t, "120.0.6099.109", got)
	})

	for name, err := range map[string]error{
		"missing file":       &fs.PathError{Op: "fork/exec", Path: "/opt/chromedriver", Err: syscall.ENOENT},
		"not on path":        &exec.Error{Name: "chromedriver", Err: exec.ErrNotFound},
		"wrong architecture": &fs.PathError{Op: "fork/exec", Path: "/opt/chromedriver", Err: syscall.ENOEXEC},
		"bad exe format":     &fs.PathError{Op: "fork/exec", Path: "/opt/chromedriver", Err: errBadExeFormat},
		"win32 on win64":     &fs.PathError{Op: "fork/exec", Path: "/opt/chromedriver", Err: errNotExecutable},
	} {
		t.Run(name+" means not installed", func(t *testing.T) {
			got, gotErr := DriverVersion(ctx, cannedRunner{err: err}, probe, "linux64")
			require.NoError(t, gotErr)
			assert.Equal(t, NotInstalled, got)
		})
	}

	t.Run("other failures propagate", func(t *testing.T) {
		_, err := DriverVersion(ctx, cannedRunner{err: errors.New("permission denied")}, probe, "linux64")
		var ve *VersionError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "probe driver", ve.Op)
	})

	t.Run("garbage output", func(t *testing.T) {
		_, err := DriverVersion(ctx, cannedRunner{out: []byte("ChromeDriver")}, probe, "linux64")
		assert.ErrorIs(t, err, ErrBadVersion)

		_, err = DriverVersion(ctx, cannedRunner{out: []byte("ChromeDriver unknown")}, probe, "linux64")
		assert.ErrorIs(t, err, ErrBadVersion)
	})
}
