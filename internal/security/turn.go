package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/vvoice/signaling/internal/protocol"
)

// TURNConfig describes the private relay, if any. TTL bounds the
// lifetime of each issued credential pair.
type TURNConfig struct {
	Enabled bool
	Host    string
	Port    int
	Secret  string
	TTL     time.Duration
}

// CredentialIssuer derives time-boxed relay credentials compatible with
// COTURN's use-auth-secret mode: the username is "expiry:identity" and
// the credential is base64(HMAC-SHA1(secret, username)). Credentials are
// never cached; each call re-derives them so the TTL window is fresh
// relative to issue time.
type CredentialIssuer struct {
	cfg TURNConfig
	now func() time.Time
}

func NewCredentialIssuer(cfg TURNConfig) *CredentialIssuer {
	return &CredentialIssuer{cfg: cfg, now: time.Now}
}

func (ci *CredentialIssuer) Issue(identity string) []protocol.ICEServer {
	servers := []protocol.ICEServer{
		{URLs: "stun:stun.l.google.com:19302"},
		{URLs: "stun:stun1.l.google.com:19302"},
	}
	if !ci.cfg.Enabled {
		return servers
	}

	expiry := ci.now().Add(ci.cfg.TTL).Unix()
	username := fmt.Sprintf("%d:%s", expiry, identity)

	mac := hmac.New(sha1.New, []byte(ci.cfg.Secret))
	mac.Write([]byte(username))
	credential := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, transport := range []string{"udp", "tcp"} {
		servers = append(servers, protocol.ICEServer{
			URLs:       fmt.Sprintf("turn:%s:%d?transport=%s", ci.cfg.Host, ci.cfg.Port, transport),
			Username:   username,
			Credential: credential,
		})
	}
	return servers
}
