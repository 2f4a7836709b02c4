package cache

import (
	"fmt"
	"time"
)

const (
	PostKeyPrefix      = "post:%d"
	BlacklistKeyPrefix = "blacklist:%s"
	ResetUsedKeyPrefix = "reset_used:%s"
)

const PostTTL = 30 * time.Minute

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// BlacklistKey marks a revoked access or refresh token by jti.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// ResetUsedKey marks a consumed password-reset token by jti.
func ResetUsedKey(jti string) string {
	return fmt.Sprintf(ResetUsedKeyPrefix, jti)
}
