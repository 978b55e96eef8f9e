package redis

import "fmt"

const keyPrefix = "accounts"

func identityKey(id int64) string {
	return fmt.Sprintf("%s:identity:%d", keyPrefix, id)
}

func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

func emailIndexKey(email string) string {
	return fmt.Sprintf("%s:idx:email:%s", keyPrefix, email)
}

// idsKey is a ZSET of every identity id scored by the id itself.
func idsKey() string {
	return keyPrefix + ":ids"
}

func sequenceKey() string {
	return keyPrefix + ":seq"
}
