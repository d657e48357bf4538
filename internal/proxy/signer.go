package proxy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/google/uuid"
)

const handleKind = "segment"

// Handle is a minted segment handle: the true origin URL and referer it
// resolves to, bounded by expiry.
type Handle struct {
	ID        string
	OriginURL string
	Referer   string
	Expiry    time.Time
}

// Signer mints and verifies HMAC-signed, time-bounded handles per
// spec.md §4.E. The handle table is a bounded LRU with per-entry TTL
// eviction; a handle is redeemable iff it is still present AND its MAC
// and expiry both check out.
type Signer struct {
	secret  []byte
	ttl     time.Duration
	handles *lru.LRU[string, Handle]
}

// NewSigner returns a Signer whose handle table holds up to capacity
// entries, each evicted ttl after insertion.
func NewSigner(secret string, capacity int, ttl time.Duration) *Signer {
	return &Signer{
		secret:  []byte(secret),
		ttl:     ttl,
		handles: lru.NewLRU[string, Handle](capacity, nil, ttl),
	}
}

// Mint allocates a new handle for (originURL, referer) and returns its
// external token: handleId|expiry|hmac(secret, handleId‖expiry‖kind).
func (s *Signer) Mint(originURL, referer string) string {
	id := uuid.NewString()
	expiry := time.Now().Add(s.ttl)
	s.handles.Add(id, Handle{ID: id, OriginURL: originURL, Referer: referer, Expiry: expiry})

	mac := s.mac(id, expiry.Unix())
	return id + "|" + strconv.FormatInt(expiry.Unix(), 10) + "|" + mac
}

// Verify redeems token, returning the Handle it names. It fails closed:
// a token is only valid if it parses, its MAC matches in constant time,
// its expiry has not passed, and it is still present in the table.
func (s *Signer) Verify(token string) (Handle, error) {
	parts := strings.SplitN(token, "|", 3)
	if len(parts) != 3 {
		return Handle{}, ErrHandleMalformed
	}
	id, expStr, mac := parts[0], parts[1], parts[2]

	expiryUnix, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return Handle{}, ErrHandleMalformed
	}
	if !hmac.Equal([]byte(mac), []byte(s.mac(id, expiryUnix))) {
		return Handle{}, ErrHandleMalformed
	}
	if time.Now().Unix() >= expiryUnix {
		return Handle{}, ErrHandleUnknown
	}

	h, ok := s.handles.Get(id)
	if !ok {
		return Handle{}, ErrHandleUnknown
	}
	return h, nil
}

func (s *Signer) mac(id string, expiryUnix int64) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	h.Write([]byte(strconv.FormatInt(expiryUnix, 10)))
	h.Write([]byte(handleKind))
	return hex.EncodeToString(h.Sum(nil))
}
