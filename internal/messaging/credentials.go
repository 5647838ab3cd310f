package messaging

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "anomaly-trainer/internal/errors"
)

const DefaultProtocolMarker = "httprest"

type oa2Credentials struct {
	ClientId      string `json:"clientid"`
	ClientSecret  string `json:"clientsecret"`
	TokenEndpoint string `json:"tokenendpoint"`
}

type vcapServices struct {
	EnterpriseMessaging []struct {
		Credentials struct {
			Uaa        oa2Credentials `json:"uaa"`
			Management []struct {
				Oa2 oa2Credentials `json:"oa2"`
			} `json:"management"`
			Messaging []struct {
				Oa2      oa2Credentials `json:"oa2"`
				Protocol []string       `json:"protocol"`
				Uri      string         `json:"uri"`
			} `json:"messaging"`
		} `json:"credentials"`
	} `json:"enterprise-messaging"`
}

// ProtocolEndpoint is one transport offered by the messaging service.
type ProtocolEndpoint struct {
	Protocol string
	Uri      string
}

// MessagingCredentials is the subset of the service binding needed to publish
// progress over HTTP.
type MessagingCredentials struct {
	ClientId      string
	ClientSecret  string
	TokenEndpoint string
	Protocols     []ProtocolEndpoint
}

// ParseVcapServices extracts the credentials of the first enterprise-messaging
// binding. The client credentials come from the uaa section and the token
// endpoint from the first management entry, falling back to the uaa one.
func ParseVcapServices(raw string) (MessagingCredentials, error) {
	var services vcapServices
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return MessagingCredentials{}, apperrors.Wrap(apperrors.ConfigInvalid, err, "invalid VCAP_SERVICES")
	}
	if len(services.EnterpriseMessaging) == 0 {
		return MessagingCredentials{}, apperrors.New(apperrors.ConfigInvalid, "VCAP_SERVICES has no enterprise-messaging binding")
	}

	binding := services.EnterpriseMessaging[0].Credentials

	creds := MessagingCredentials{
		ClientId:      binding.Uaa.ClientId,
		ClientSecret:  binding.Uaa.ClientSecret,
		TokenEndpoint: binding.Uaa.TokenEndpoint,
	}
	if len(binding.Management) > 0 && binding.Management[0].Oa2.TokenEndpoint != "" {
		creds.TokenEndpoint = binding.Management[0].Oa2.TokenEndpoint
	}

	for _, m := range binding.Messaging {
		for _, protocol := range m.Protocol {
			creds.Protocols = append(creds.Protocols, ProtocolEndpoint{Protocol: protocol, Uri: m.Uri})
		}
	}

	if creds.ClientId == "" || creds.ClientSecret == "" || creds.TokenEndpoint == "" {
		return MessagingCredentials{}, apperrors.New(apperrors.ConfigInvalid, "messaging binding is missing client id, client secret or token endpoint")
	}

	return creds, nil
}

type ProtocolMatcher func(protocol string) bool

func ContainsMarker(marker string) ProtocolMatcher {
	return func(protocol string) bool {
		return strings.Contains(protocol, marker)
	}
}

// SelectEndpoint returns the first endpoint whose protocol satisfies match.
func SelectEndpoint(endpoints []ProtocolEndpoint, match ProtocolMatcher) (ProtocolEndpoint, error) {
	for _, endpoint := range endpoints {
		if match(endpoint.Protocol) {
			return endpoint, nil
		}
	}

	protocols := make([]string, 0, len(endpoints))
	for _, endpoint := range endpoints {
		protocols = append(protocols, endpoint.Protocol)
	}
	return ProtocolEndpoint{}, apperrors.Newf(apperrors.NoCompatibleProtocol, "no compatible protocol among %v", protocols)
}

// QueueRoute describes how the publish url is built from a protocol uri.
type QueueRoute struct {
	MessageQueue string
	PathPrefix   string
	Queue        string
	PathSuffix   string
}

func (r QueueRoute) Url(endpoint ProtocolEndpoint) string {
	return fmt.Sprintf("%s%s/%s%s/%s", endpoint.Uri, r.MessageQueue, r.PathPrefix, r.Queue, r.PathSuffix)
}
