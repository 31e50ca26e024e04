package mtproto

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gotd/td/crypto"
	"github.com/gotd/td/session"
)

// ErrInvalidSession is returned for session strings that cannot be decoded
var ErrInvalidSession = errors.New("invalid session string")

const authKeySize = 256

// DecodeSession parses an exported string session. GramJS strings are tried
// first, Telethon strings second; both start with the version byte '1'.
func DecodeSession(s string) (*session.Data, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '1' {
		return nil, fmt.Errorf("%w: unsupported version", ErrInvalidSession)
	}

	if data, err := decodeGramJS(s[1:]); err == nil {
		return data, nil
	}

	data, err := session.TelethonSession(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	return data, nil
}

// decodeGramJS decodes the payload of a GramJS StringSession:
// dc id (1 byte), address length (2 bytes BE), address, port (2 bytes BE),
// auth key (256 bytes)
func decodeGramJS(payload string) (*session.Data, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, err
		}
	}

	if len(raw) < 1+2+2+authKeySize {
		return nil, fmt.Errorf("%w: payload too short", ErrInvalidSession)
	}

	dc := int(raw[0])
	addrLen := int(binary.BigEndian.Uint16(raw[1:3]))
	if len(raw) != 1+2+addrLen+2+authKeySize {
		return nil, fmt.Errorf("%w: length mismatch", ErrInvalidSession)
	}

	addr := string(raw[3 : 3+addrLen])
	if net.ParseIP(addr) == nil {
		return nil, fmt.Errorf("%w: bad address %q", ErrInvalidSession, addr)
	}
	port := binary.BigEndian.Uint16(raw[3+addrLen : 5+addrLen])

	var key crypto.Key
	copy(key[:], raw[5+addrLen:])
	id := key.ID()

	return &session.Data{
		DC:        dc,
		Addr:      net.JoinHostPort(addr, strconv.Itoa(int(port))),
		AuthKey:   key[:],
		AuthKeyID: id[:],
	}, nil
}

// NewSessionStorage decodes s into in-memory session storage for a client.
// Nothing is written back to disk.
func NewSessionStorage(ctx context.Context, s string) (*session.StorageMemory, error) {
	data, err := DecodeSession(s)
	if err != nil {
		return nil, err
	}

	storage := &session.StorageMemory{}
	loader := session.Loader{Storage: storage}
	if err := loader.Save(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return storage, nil
}
