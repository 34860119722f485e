package checkpoint_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surjbayarea/actionsync/pkg/checkpoint"
)

func logPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "export.csv.log")
}

func TestOpenCreatesFreshLogWithHeader(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.NoError(t, err)
	require.NoError(t, log.Append(1, checkpoint.StatusOK, "ana@example.com", "create"))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	assert.Equal(t, "SyncFile: 'export.csv'", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "SyncTime: "))
	assert.Equal(t, "[0001] OK ana@example.com create", lines[2])
}

func TestOpenRefusesExistingLogWithoutFlags(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.NoError(t, err)
	require.NoError(t, log.Close())

	_, err = checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume")
	assert.Contains(t, err.Error(), "--overwrite")
}

func TestOpenOverwriteRecreates(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.NoError(t, err)
	require.NoError(t, log.Append(1, checkpoint.StatusOK, "ana@example.com", ""))
	require.NoError(t, log.Close())

	log, err = checkpoint.Open(path, "export.csv", checkpoint.Options{Overwrite: true})
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	assert.False(t, log.Skip(1), "overwritten log must not retain a skip set")
}

func TestResumeBuildsSkipSet(t *testing.T) {
	path := logPath(t)

	content := "SyncFile: 'export.csv'\n" +
		"SyncTime: 2022-03-22 14:01:07\n" +
		"[0001] OK ana@example.com create\n" +
		"[0002] SKIP ben@example.com\n" +
		"[0003] ERROR cam@example.com lookup failed\n" +
		"[0004] NOT_FOUND dee@example.com\n" +
		"[0005] MISMATCH_ID eli@example.com id mismatch\n" +
		"[0006] DRYRUN fay@example.com create\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{Resume: true})
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	assert.True(t, log.Skip(1), "OK rows are skipped")
	assert.True(t, log.Skip(2), "SKIP rows are skipped")
	assert.False(t, log.Skip(3), "ERROR rows are re-attempted")
	assert.False(t, log.Skip(4), "NOT_FOUND rows are re-attempted")
	assert.False(t, log.Skip(5), "MISMATCH_ID rows are re-attempted")
	assert.False(t, log.Skip(6), "DRYRUN rows are re-attempted")
	assert.Equal(t, 2, log.SkipCount())
}

func TestResumeRejectsDatasetMismatch(t *testing.T) {
	path := logPath(t)
	require.NoError(t, os.WriteFile(path, []byte("SyncFile: 'export_B.csv'\n"), 0o644))

	_, err := checkpoint.Open(path, "export_A.csv", checkpoint.Options{Resume: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different dataset")
}

func TestResumeOnMissingLogIsIgnored(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{Resume: true})
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	assert.Equal(t, 0, log.SkipCount())
}

func TestConsoleLogIgnoresResume(t *testing.T) {
	log, err := checkpoint.Open(checkpoint.Console, "export.csv", checkpoint.Options{Resume: true})
	require.NoError(t, err)
	defer func() { _ = log.Close() }()

	assert.Equal(t, 0, log.SkipCount())
	assert.False(t, log.Skip(1))
}

func TestTypoedLogFilenameIsRejected(t *testing.T) {
	_, err := checkpoint.Open("og", "export.csv", checkpoint.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--log")
}

func TestDryRunRewritesOK(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{DryRun: true})
	require.NoError(t, err)
	require.NoError(t, log.Append(1, checkpoint.StatusOK, "ana@example.com", "create"))
	require.NoError(t, log.Append(2, checkpoint.StatusError, "ben@example.com", "boom"))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "[0001] DRYRUN ana@example.com create")
	assert.Contains(t, string(data), "[0002] ERROR ben@example.com boom")
	assert.NotContains(t, string(data), "[0001] OK")
}

func TestAppendZeroPadsRowID(t *testing.T) {
	path := logPath(t)

	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.NoError(t, err)
	require.NoError(t, log.Append(7, checkpoint.StatusOK, "ana@example.com", ""))
	require.NoError(t, log.Append(12345, checkpoint.StatusOK, "ben@example.com", ""))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), "[0007] OK ana@example.com")
	assert.Contains(t, string(data), "[12345] OK ben@example.com")
}

func TestResumeRoundTrip(t *testing.T) {
	path := logPath(t)

	// First run: rows 1..3, row 2 fails.
	log, err := checkpoint.Open(path, "export.csv", checkpoint.Options{})
	require.NoError(t, err)
	require.NoError(t, log.Append(1, checkpoint.StatusOK, "ana@example.com", "create"))
	require.NoError(t, log.Append(2, checkpoint.StatusError, "ben@example.com", "lookup failed"))
	require.NoError(t, log.Append(3, checkpoint.StatusOK, "cam@example.com", ""))
	require.NoError(t, log.Close())

	// Second run resumes and re-attempts only row 2.
	log, err = checkpoint.Open(path, "export.csv", checkpoint.Options{Resume: true})
	require.NoError(t, err)
	assert.True(t, log.Skip(1))
	assert.False(t, log.Skip(2))
	assert.True(t, log.Skip(3))
	require.NoError(t, log.Append(2, checkpoint.StatusOK, "ben@example.com", "create"))
	require.NoError(t, log.Close())

	// Third run skips everything.
	log, err = checkpoint.Open(path, "export.csv", checkpoint.Options{Resume: true})
	require.NoError(t, err)
	defer func() { _ = log.Close() }()
	assert.Equal(t, 3, log.SkipCount())
}
