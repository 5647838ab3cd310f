package messaging

import (
	"testing"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVcap = `{
  "enterprise-messaging": [{
    "credentials": {
      "uaa": {"clientid": "client-1", "clientsecret": "secret-1", "tokenendpoint": "https://uaa.example.com/oauth/token"},
      "management": [{"oa2": {"tokenendpoint": "https://mgmt.example.com/oauth/token"}}],
      "messaging": [
        {"protocol": ["amqp10ws"], "uri": "wss://broker.example.com/ws"},
        {"protocol": ["httprest"], "uri": "https://rest.example.com"}
      ]
    }
  }]
}`

func TestParseVcapServices(t *testing.T) {
	creds, err := ParseVcapServices(testVcap)
	require.NoError(t, err)

	assert.Equal(t, "client-1", creds.ClientId)
	assert.Equal(t, "secret-1", creds.ClientSecret)
	assert.Equal(t, "https://mgmt.example.com/oauth/token", creds.TokenEndpoint)
	assert.Equal(t, []ProtocolEndpoint{
		{Protocol: "amqp10ws", Uri: "wss://broker.example.com/ws"},
		{Protocol: "httprest", Uri: "https://rest.example.com"},
	}, creds.Protocols)
}

func TestParseVcapServices_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":        "{",
		"no binding":      `{"enterprise-messaging": []}`,
		"no client creds": `{"enterprise-messaging": [{"credentials": {"messaging": []}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVcapServices(raw)
			assert.ErrorIs(t, err, apperrors.ConfigInvalid)
		})
	}
}

func TestSelectEndpoint(t *testing.T) {
	endpoints := []ProtocolEndpoint{
		{Protocol: "amqp10ws", Uri: "wss://a"},
		{Protocol: "httprest", Uri: "https://b"},
		{Protocol: "httprest-v2", Uri: "https://c"},
	}

	endpoint, err := SelectEndpoint(endpoints, ContainsMarker("httprest"))
	require.NoError(t, err)
	assert.Equal(t, "https://b", endpoint.Uri)

	endpoint, err = SelectEndpoint(endpoints, ContainsMarker("v2"))
	require.NoError(t, err)
	assert.Equal(t, "https://c", endpoint.Uri)

	_, err = SelectEndpoint(endpoints, ContainsMarker("mqtt"))
	assert.ErrorIs(t, err, apperrors.NoCompatibleProtocol)

	_, err = SelectEndpoint(nil, ContainsMarker("httprest"))
	assert.ErrorIs(t, err, apperrors.NoCompatibleProtocol)
}

func TestQueueRouteUrl(t *testing.T) {
	route := QueueRoute{
		MessageQueue: "/messagingrest/v1",
		PathPrefix:   "queues/",
		Queue:        DefaultProgressQueue,
		PathSuffix:   "messages",
	}
	url := route.Url(ProtocolEndpoint{Protocol: "httprest", Uri: "https://rest.example.com"})
	assert.Equal(t, "https://rest.example.com/messagingrest/v1/queues/PredictiveAnalyticsTrainingPercentage/messages", url)
}
