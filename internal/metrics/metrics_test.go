package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vaultsess/pkg/session"
)

func TestRecorder_Counts(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.RecordAuth(session.BackendUserPass, nil)
	r.RecordAuth(session.BackendUserPass, errors.New("invalid username or password"))
	r.RecordOperation("read", &session.OpError{Op: "read", Kind: session.OpAuthFailure, Status: 403})
	r.RecordOperation("read", nil)
	r.RecordOperation("write", &session.OpError{Op: "write", Kind: session.OpOther, Status: 404})
	r.RecordRetry("read")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.authTotal.WithLabelValues("userpass", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.authTotal.WithLabelValues("userpass", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operationTotal.WithLabelValues("read", "auth_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operationTotal.WithLabelValues("read", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.operationTotal.WithLabelValues("write", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retryTotal.WithLabelValues("read")))
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	t.Parallel()

	a, b := NewRecorder(), NewRecorder()
	a.RecordRetry("read")

	assert.Equal(t, 1, testutil.CollectAndCount(a.retryTotal))
	assert.Equal(t, 0, testutil.CollectAndCount(b.retryTotal))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.RecordAuth(session.BackendToken, nil)
	r.RecordRetry("write")

	path := filepath.Join(t.TempDir(), "vaultsess.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `vaultsess_auth_attempts_total{backend="token",outcome="success"} 1`)
	assert.Contains(t, out, `vaultsess_retries_total{operation="write"} 1`)
}
