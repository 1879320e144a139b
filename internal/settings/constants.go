package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "OpenKcal"
	// DefaultDailyCalorieGoalKey controls the goal assigned when registration omits one.
	DefaultDailyCalorieGoalKey = "DEFAULT_DAILY_CALORIE_GOAL"
	// DefaultDailyCalorieGoal is the fallback daily calorie goal (kcal).
	DefaultDailyCalorieGoal = 2000
	// LoginRateLimitKey controls the allowed login attempts per second per key.
	LoginRateLimitKey = "LOGIN_RATE_LIMIT"
	// DefaultLoginRateLimit is the fallback login attempt limit per second.
	DefaultLoginRateLimit = 5
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "openkcal:rl"
	// MinDailyCalorieGoal is the lowest accepted daily goal (kcal).
	MinDailyCalorieGoal = 1000
	// MaxDailyCalorieGoal is the highest accepted daily goal (kcal).
	MaxDailyCalorieGoal = 5000
)
