package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dk0164/TMS-MONITOR/core/aggregate"
	coremetrics "github.com/dk0164/TMS-MONITOR/core/metrics"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0644))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0644))
	return
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.Equal(t, "id", opts.ClientID)

	_, err = NewClientOptions(Config{})
	assert.Error(t, err)
}

func TestSummaryPublisher_Publish(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewSummaryPublisher(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true})
	require.NoError(t, err)
	assert.Contains(t, mc.opts.ClientID, "tms-monitor-")

	now := time.UnixMilli(1760000000000)
	ev := coremetrics.SyncEvent{
		ID:      "sync-1",
		Outcome: coremetrics.OutcomeSuccess,
		Records: 12,
		Summary: aggregate.Summary{Count: 12, TotalDistance: 340.5, Delivered: 10, Cancelled: 1},
		Time:    now,
	}
	require.NoError(t, pub.RecordSync(ev))
	require.Len(t, mc.published, 1)
	got := mc.published[0]
	assert.Equal(t, DefaultTopic, got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retained)

	var msg SummaryMessage
	require.NoError(t, json.Unmarshal(got.payload, &msg))
	assert.Equal(t, "sync-1", msg.SyncID)
	assert.Equal(t, 12, msg.Records)
	assert.Equal(t, ev.Summary, msg.Summary)
	assert.Equal(t, now.UnixMilli(), msg.SyncedAt)
}

func TestSummaryPublisher_SkipsFailures(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewSummaryPublisher(Config{Broker: "tcp://localhost:1883", Topic: "fleet/tms"})
	require.NoError(t, err)
	require.NoError(t, pub.RecordSync(coremetrics.SyncEvent{Outcome: coremetrics.OutcomeTransportError}))
	assert.Empty(t, mc.published)
}

func TestSummaryPublisher_Retry(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewSummaryPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	require.NoError(t, pub.RecordSync(coremetrics.SyncEvent{Outcome: coremetrics.OutcomeSuccess}))
	assert.Len(t, mc.published, 2)
}

func TestSummaryPublisher_RetryExhausted(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	pub, err := NewSummaryPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, pub.RecordSync(coremetrics.SyncEvent{Outcome: coremetrics.OutcomeSuccess}), fail)
	assert.Len(t, mc.published, 2)
	require.NoError(t, pub.Close())
	assert.True(t, mc.disconnected)
}

func TestSummaryPublisher_ConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	withMock(t, mc)
	_, err := NewSummaryPublisher(Config{Broker: "tcp://localhost:1883"})
	assert.EqualError(t, err, "refused")
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts      *paho.ClientOptions
	published []struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}
	publishErrs  []error
	connectErr   error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	return &dummyToken{err: m.connectErr}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, struct {
		topic    string
		qos      byte
		retained bool
		payload  []byte
	}{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
