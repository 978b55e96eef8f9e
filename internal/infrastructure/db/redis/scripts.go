package redis

import "github.com/redis/go-redis/v9"

// Scripts return "ok" or a short reason. Uniqueness checks and index writes
// happen in one script so two writers cannot claim the same username.

// KEYS: username idx, email idx, identity, ids. ARGV: id, record.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 'username' end
if redis.call('EXISTS', KEYS[2]) == 1 then return 'email' end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[1])
redis.call('SET', KEYS[3], ARGV[2])
redis.call('ZADD', KEYS[4], ARGV[1], ARGV[1])
return 'ok'
`)

// KEYS: identity, old username idx, new username idx, old email idx,
// new email idx. ARGV: expected record, next record, id.
var updateScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then return 'missing' end
if cur ~= ARGV[1] then return 'stale' end
local renamed = KEYS[3] ~= KEYS[2]
local remailed = KEYS[5] ~= KEYS[4]
if renamed and redis.call('EXISTS', KEYS[3]) == 1 then return 'username' end
if remailed and redis.call('EXISTS', KEYS[5]) == 1 then return 'email' end
if renamed then
  redis.call('DEL', KEYS[2])
  redis.call('SET', KEYS[3], ARGV[3])
end
if remailed then
  redis.call('DEL', KEYS[4])
  redis.call('SET', KEYS[5], ARGV[3])
end
redis.call('SET', KEYS[1], ARGV[2])
return 'ok'
`)

// KEYS: identity, username idx, email idx, ids. ARGV: expected record, id.
var deleteScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then return 'missing' end
if cur ~= ARGV[1] then return 'stale' end
redis.call('DEL', KEYS[1], KEYS[2], KEYS[3])
redis.call('ZREM', KEYS[4], ARGV[2])
return 'ok'
`)
