package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "cli-secret-cli-secret-cli-secret-cli"

// run executes gotoken with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func issue(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, append([]string{"--jwt-secret-key", testSecret, "issue"}, args...)...)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func decode(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, err := run(t, append([]string{"--jwt-secret-key", testSecret, "decode"}, args...)...)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	return got
}

func TestIssueAndDecode(t *testing.T) {
	token := issue(t, "--identity", "alice", "--header", "tenant=42", "--header", "region=eu",
		"--user-claim", `roles=["admin"]`, "--fresh")
	require.Equal(t, 2, strings.Count(token, "."))

	got := decode(t, token, "--kind", "access", "--fresh")

	header := got["header"].(map[string]any)
	assert.Equal(t, float64(42), header["tenant"])
	assert.Equal(t, "eu", header["region"])
	assert.Equal(t, "HS256", header["alg"])
	assert.Equal(t, "access", got["kind"])
	assert.Equal(t, "alice", got["identity"])
	assert.Equal(t, true, got["fresh"])
	assert.Equal(t, []any{"admin"}, got["user_claims"].(map[string]any)["roles"])
	assert.NotEmpty(t, got["jti"])
	assert.NotEmpty(t, got["expires_at"])
}

func TestIssueRefreshRejectedAsAccess(t *testing.T) {
	token := issue(t, "--identity", "bob", "--kind", "refresh")

	got := decode(t, token, "--kind", "refresh")
	assert.Equal(t, "refresh", got["kind"])

	_, err := run(t, "--jwt-secret-key", testSecret, "decode", token, "--kind", "access")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only access tokens are allowed")
}

func TestDecodeExpired(t *testing.T) {
	token := issue(t, "--identity", "carol", "--expires-in=-1m")

	_, err := run(t, "--jwt-secret-key", testSecret, "decode", token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has expired")

	got := decode(t, token, "--allow-expired")
	assert.Equal(t, "carol", got["identity"])
}

func TestDecodeWrongSecret(t *testing.T) {
	token := issue(t, "--identity", "dave")

	_, err := run(t, "--jwt-secret-key", strings.Repeat("x", 40), "decode", token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}

func TestHeader(t *testing.T) {
	token := issue(t, "--identity", "erin", "--header", "kid=k1", "--no-expiry")

	out, err := run(t, "--jwt-secret-key", testSecret, "header", token)
	require.NoError(t, err)
	var verified map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &verified))
	assert.Equal(t, "k1", verified["kid"])
	assert.Equal(t, "JWT", verified["typ"])

	out, err = run(t, "header", "--unverified", token)
	require.NoError(t, err, "unverified header needs no key")
	var unverified map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &unverified))
	assert.Equal(t, verified, unverified)

	_, err = run(t, "header", "--unverified", "foobarbaz")
	require.Error(t, err)
}

func TestIssueErrors(t *testing.T) {
	_, err := run(t, "--jwt-secret-key", testSecret, "issue")
	require.Error(t, err, "identity is required")

	_, err = run(t, "--jwt-secret-key", testSecret, "issue", "--identity", "x", "--kind", "id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown token kind "id"`)

	_, err = run(t, "--jwt-secret-key", testSecret, "issue", "--identity", "x", "--header", "novalue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected key=value")

	_, err = run(t, "issue", "--identity", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires SecretKey")

	_, err = run(t, "--jwt-secret-key", testSecret, "--jwt-access-ttl", "soon", "issue", "--identity", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.access_ttl")
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"n=42", "s=plain", `o={"a":true}`, "empty="})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "plain", got["s"])
	assert.Equal(t, "", got["empty"])
}

func TestBench(t *testing.T) {
	out, err := run(t, "bench", "--ops", "50", "--concurrency", "4", "--identities", "5", "--redis-headers")
	require.NoError(t, err)

	assert.Contains(t, out, "using miniredis")
	assert.Contains(t, out, "seeded 5 header sets")
	assert.Contains(t, out, "issue: ops=50 failures=0")
	assert.Contains(t, out, "decode: ops=50 failures=0")
}

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 10)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, time.Millisecond, percentile(samples, 0))
	assert.Equal(t, 5*time.Millisecond, percentile(samples, 50))
	assert.Equal(t, 10*time.Millisecond, percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}
