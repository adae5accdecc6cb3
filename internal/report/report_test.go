package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsweep/netsweep/internal/config"
	"github.com/netsweep/netsweep/internal/errors"
	"github.com/netsweep/netsweep/internal/logging"
	"github.com/netsweep/netsweep/internal/scanning"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(logging.Config{Level: "error", Output: "stderr"})
	require.NoError(t, err)
	return logger
}

func sampleResult() *scanning.Result {
	return &scanning.Result{
		Category:  scanning.CategoryARPDiscovery,
		Target:    "192.168.1.0/24",
		Hosts:     []netip.Addr{netip.MustParseAddr("192.168.1.10"), netip.MustParseAddr("192.168.1.20")},
		Stats:     scanning.HostStats{Up: 2, Down: 254, Total: 256},
		StartTime: time.Now().Add(-3 * time.Second),
		Duration:  3 * time.Second,
	}
}

func TestNewReport(t *testing.T) {
	rep := NewReport(sampleResult())

	assert.NotEqual(t, "", rep.ID.String())
	assert.Equal(t, "arp-discovery", rep.Category)
	assert.Equal(t, "192.168.1.0/24", rep.Target)
	assert.Equal(t, []string{"192.168.1.10", "192.168.1.20"}, rep.Hosts)
	assert.Equal(t, 2, rep.HostsUp)
	assert.Equal(t, 254, rep.HostsDown)
	assert.Equal(t, 256, rep.HostsTotal)
	assert.Equal(t, int64(3), rep.DurationSec)
	assert.WithinDuration(t, time.Now().UTC(), rep.CreatedAt, time.Minute)
}

func TestNewReportUntargeted(t *testing.T) {
	result := sampleResult()
	result.Target = ""
	rep := NewReport(result)

	assert.Empty(t, rep.Target)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"target"`)
}

func TestSignerHMAC(t *testing.T) {
	signer, err := NewSigner(config.SigningConfig{
		Passphrase: "correct horse battery staple",
		Salt:       "netsweep-test",
		KeyID:      "sensor-7",
	})
	require.NoError(t, err)

	assert.Equal(t, AlgorithmHMACSHA256, signer.Algorithm())
	assert.Nil(t, signer.PublicKey())

	payload := []byte(`{"id":"x"}`)
	sig := signer.Sign(payload)

	assert.Equal(t, AlgorithmHMACSHA256, sig.Algorithm)
	assert.Equal(t, "sensor-7", sig.KeyID)
	assert.True(t, signer.Verify(payload, sig))
	assert.False(t, signer.Verify([]byte(`{"id":"y"}`), sig))

	// Same passphrase and salt must derive the same key.
	again, err := NewSigner(config.SigningConfig{
		Passphrase: "correct horse battery staple",
		Salt:       "netsweep-test",
	})
	require.NoError(t, err)
	assert.True(t, again.Verify(payload, sig))
}

func TestSignerEd25519(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}

	keyFile := filepath.Join(t.TempDir(), "signing.key")
	encoded := base64.StdEncoding.EncodeToString(seed) + "\n"
	require.NoError(t, os.WriteFile(keyFile, []byte(encoded), 0o600))

	signer, err := NewSigner(config.SigningConfig{KeyFile: keyFile, KeyID: "sensor-7"})
	require.NoError(t, err)

	assert.Equal(t, AlgorithmEd25519, signer.Algorithm())
	assert.NotNil(t, signer.PublicKey())

	payload := []byte("report payload")
	sig := signer.Sign(payload)
	assert.True(t, signer.Verify(payload, sig))
	assert.False(t, signer.Verify([]byte("tampered"), sig))

	// A signature from another algorithm never verifies.
	sig.Algorithm = AlgorithmHMACSHA256
	assert.False(t, signer.Verify(payload, sig))
}

func TestSignerRejectsBadKeys(t *testing.T) {
	_, err := NewSigner(config.SigningConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSigning))

	badFile := filepath.Join(t.TempDir(), "short.key")
	require.NoError(t, os.WriteFile(badFile,
		[]byte(base64.StdEncoding.EncodeToString([]byte("short"))), 0o600))
	_, err = NewSigner(config.SigningConfig{KeyFile: badFile})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSigning))

	notBase64 := filepath.Join(t.TempDir(), "junk.key")
	require.NoError(t, os.WriteFile(notBase64, []byte("!!not base64!!"), 0o600))
	_, err = NewSigner(config.SigningConfig{KeyFile: notBase64})
	require.Error(t, err)

	_, err = NewSigner(config.SigningConfig{KeyFile: filepath.Join(t.TempDir(), "missing.key")})
	require.Error(t, err)
}

func TestQueueEnqueue(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outgoing")
	queue, err := NewQueue(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, queue.Dir())

	rep := NewReport(sampleResult())
	env := &Envelope{Report: rep, Signature: Signature{Algorithm: AlgorithmHMACSHA256, Value: "c2ln"}}

	path, err := queue.Enqueue(env)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, rep.ID.String()+".json"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rep.ID, decoded.Report.ID)
	assert.Equal(t, env.Signature, decoded.Signature)

	// No half-written spool files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPipelinePublish(t *testing.T) {
	signer, err := NewSigner(config.SigningConfig{Passphrase: "pw", Salt: "s"})
	require.NoError(t, err)

	dir := t.TempDir()
	queue, err := NewQueue(dir)
	require.NoError(t, err)

	pipeline := NewPipeline(signer, queue, nil, testLogger(t))
	require.NoError(t, pipeline.Publish(context.Background(), sampleResult()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "arp-discovery", env.Report.Category)

	payload, err := json.Marshal(env.Report)
	require.NoError(t, err)
	assert.True(t, signer.Verify(payload, env.Signature))
}

func TestPipelinePublishEmptyResult(t *testing.T) {
	signer, err := NewSigner(config.SigningConfig{Passphrase: "pw", Salt: "s"})
	require.NoError(t, err)

	queue, err := NewQueue(t.TempDir())
	require.NoError(t, err)

	result := &scanning.Result{
		Category: scanning.CategoryProtocolDetection,
		Target:   "10.0.0.0/24",
		Duration: time.Second,
	}

	pipeline := NewPipeline(signer, queue, nil, testLogger(t))
	require.NoError(t, pipeline.Publish(context.Background(), result))

	entries, err := os.ReadDir(queue.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewResolverDisabled(t *testing.T) {
	assert.Nil(t, NewResolver(config.ReverseDNSConfig{}, testLogger(t)))
}
