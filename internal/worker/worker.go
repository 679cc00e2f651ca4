// Package worker provides the process-scoped identity used to attribute
// issuance and verification actions.
package worker

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kube-credential/credential-service/internal/credential"
)

const (
	// RoleIssuer prefixes worker ids of issuance processes.
	RoleIssuer = "worker"
	// RoleVerifier prefixes worker ids of verification processes.
	RoleVerifier = "verifier"
)

// Identity identifies a single service process. Generated once at startup
// from hostname, pid, and a random suffix; stable for the process lifetime.
type Identity struct {
	ID        string `json:"workerId"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"timestamp"`
}

// NewIdentity constructs the identity for this process with the given role.
func NewIdentity(role string) Identity {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return Identity{
		ID:        fmt.Sprintf("%s-%s-%d-%s", role, hostname, os.Getpid(), suffix),
		Hostname:  hostname,
		Timestamp: time.Now().UTC().Format(credential.TimestampLayout),
	}
}
