package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net"
	"regexp"
	"strings"

	"github.com/ahmetcoskunkizilkaya/campus-stories/internal/models"
	"github.com/google/uuid"
)

// UnknownAddress is used when no client address can be observed. Events keyed
// on it cannot be told apart, so address-based dedup is lost for that caller.
const UnknownAddress = "unknown"

var sessionTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16,128}$`)

// Account is what the auth collaborator returns for a verified credential.
type Account struct {
	ID   uuid.UUID
	Role string
}

type AccountVerifier interface {
	VerifyAccount(ctx context.Context, token string) (*Account, error)
}

// Identity is a best-effort stand-in for "the same submitter".
type Identity struct {
	Tier           string     `json:"tier"`
	AccountID      *uuid.UUID `json:"account_id,omitempty"`
	Role           string     `json:"role,omitempty"`
	SessionToken   string     `json:"-"`
	SessionMinted  bool       `json:"-"`
	NetworkAddress string     `json:"-"`
}

// ProxyKey picks the single proxy an engagement event is keyed on:
// account id, else a caller-supplied session token, else network address.
// A token minted for this request identifies nobody yet and is skipped.
func (i Identity) ProxyKey() (models.IdentityKind, string) {
	if i.AccountID != nil && *i.AccountID != uuid.Nil {
		return models.IdentityAccount, i.AccountID.String()
	}
	if i.SessionToken != "" && !i.SessionMinted {
		return models.IdentitySession, i.SessionToken
	}
	addr := i.NetworkAddress
	if addr == "" {
		addr = UnknownAddress
	}
	return models.IdentityAddress, addr
}

func (i Identity) IsStaff() bool {
	return i.Tier == models.TierStaff
}

// ResolveInput carries the raw request values the resolver looks at.
type ResolveInput struct {
	Authorization string
	SessionToken  string
	ForwardedFor  string
	RealIP        string
	RemoteAddr    string
}

type IdentityResolver struct {
	verifier          AccountVerifier
	staffRoles        map[string]bool
	trustProxyHeaders bool
}

func NewIdentityResolver(verifier AccountVerifier, staffRoles []string, trustProxyHeaders bool) *IdentityResolver {
	roles := make(map[string]bool, len(staffRoles))
	for _, role := range staffRoles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			roles[role] = true
		}
	}
	return &IdentityResolver{
		verifier:          verifier,
		staffRoles:        roles,
		trustProxyHeaders: trustProxyHeaders,
	}
}

// Resolve never fails: any credential error downgrades the caller to anonymous.
func (r *IdentityResolver) Resolve(ctx context.Context, in ResolveInput) Identity {
	id := Identity{Tier: models.TierAnonymous}

	if token := bearerToken(in.Authorization); token != "" && r.verifier != nil {
		if account, err := r.verifier.VerifyAccount(ctx, token); err == nil && account != nil {
			accountID := account.ID
			id.AccountID = &accountID
			id.Role = account.Role
			id.Tier = r.TierForRole(account.Role)
		}
	}

	if sessionTokenPattern.MatchString(in.SessionToken) {
		id.SessionToken = in.SessionToken
	} else {
		id.SessionToken = MintSessionToken()
		id.SessionMinted = true
	}

	id.NetworkAddress = r.networkAddress(in)
	return id
}

// TierForRole maps an authenticated role to staff or registered.
func (r *IdentityResolver) TierForRole(role string) string {
	if r.staffRoles[strings.ToLower(role)] {
		return models.TierStaff
	}
	return models.TierRegistered
}

func (r *IdentityResolver) networkAddress(in ResolveInput) string {
	candidates := []string{}
	if r.trustProxyHeaders {
		if in.ForwardedFor != "" {
			candidates = append(candidates, strings.Split(in.ForwardedFor, ",")[0])
		}
		candidates = append(candidates, in.RealIP)
	}
	candidates = append(candidates, in.RemoteAddr)

	for _, c := range candidates {
		if addr := NormalizeAddress(c); addr != UnknownAddress {
			return addr
		}
	}
	return UnknownAddress
}

// NormalizeAddress returns the canonical textual form of an IP, dropping any
// port, or UnknownAddress when raw is not an address.
func NormalizeAddress(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownAddress
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
	ip := net.ParseIP(raw)
	if ip == nil {
		return UnknownAddress
	}
	return ip.String()
}

// MintSessionToken returns a fresh 256-bit URL-safe token.
func MintSessionToken() string {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// WithSession adopts a caller-supplied session token when the resolver had to
// mint one. Invalid or empty tokens leave the identity unchanged.
func (i Identity) WithSession(token string) Identity {
	if !i.SessionMinted || !sessionTokenPattern.MatchString(token) {
		return i
	}
	i.SessionToken = token
	i.SessionMinted = false
	return i
}
