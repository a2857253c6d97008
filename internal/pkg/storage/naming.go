package storage

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/ds124wfegd/WB_L3/avatar/internal/entity"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

const ownerDigestLen = 12

var storedNamePattern = regexp.MustCompile(`^user_[0-9a-f]{12}_[0-9a-f]{32}\.(jpg|png|gif|webp)$`)

// NewName builds user_{owner digest}_{random}.{ext}. Nothing the client sent ends up
// in the name verbatim: the owner is hashed and the extension comes from the container.
func NewName(owner string, container entity.Container) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate name: %w", err)
	}
	return fmt.Sprintf("user_%s_%s.%s", OwnerDigest(owner), hex.EncodeToString(id[:]), container.Extension()), nil
}

// OwnerDigest scopes names to an owner without exposing the identity.
func OwnerDigest(owner string) string {
	sum := blake3.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])[:ownerDigestLen]
}

// ValidName reports whether name could have been produced by NewName.
func ValidName(name string) bool {
	return storedNamePattern.MatchString(name)
}

// DigestOf extracts the owner digest from a stored name.
func DigestOf(name string) (string, bool) {
	if !ValidName(name) {
		return "", false
	}
	return name[len("user_") : len("user_")+ownerDigestLen], true
}

// OwnedBy reports whether name was issued for owner.
func OwnedBy(name, owner string) bool {
	return strings.HasPrefix(name, "user_"+OwnerDigest(owner)+"_")
}

// ContainerOf derives the container from a stored name's extension.
func ContainerOf(name string) entity.Container {
	switch {
	case strings.HasSuffix(name, ".jpg"):
		return entity.ContainerJPEG
	case strings.HasSuffix(name, ".png"):
		return entity.ContainerPNG
	case strings.HasSuffix(name, ".gif"):
		return entity.ContainerGIF
	case strings.HasSuffix(name, ".webp"):
		return entity.ContainerWEBP
	default:
		return ""
	}
}
