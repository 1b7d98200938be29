package user_agent

import (
	"embed"
	"log/slog"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed database/bots.yml
var databaseFiles embed.FS

// BotEntry is one entry of the embedded bot database.
type BotEntry struct {
	Regex    string `yaml:"regex"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// regexCache compiles database patterns on first use.
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func (rc *regexCache) get(expr string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if re, ok := rc.compiled[expr]; ok {
		rc.mutex.RUnlock()
		return re, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if re, ok := rc.compiled[expr]; ok {
		return re, nil
	}
	re, err := pcre.Compile(expr)
	if err != nil {
		return nil, err
	}
	rc.compiled[expr] = re
	return re, nil
}

var (
	bots     []BotEntry
	cache    = &regexCache{compiled: make(map[string]*pcre.Regexp)}
	botsOnce sync.Once
)

func loadBots() []BotEntry {
	botsOnce.Do(func() {
		data, err := databaseFiles.ReadFile("database/bots.yml")
		if err != nil {
			slog.Default().Error("user_agent: bot database missing", slog.Any("error", err))
			return
		}
		if err := yaml.Unmarshal(data, &bots); err != nil {
			slog.Default().Error("user_agent: bot database unreadable", slog.Any("error", err))
		}
	})
	return bots
}

// DetectBot returns the matching bot entry, if any. An empty user agent is
// treated as automated traffic.
func DetectBot(userAgent string) (BotEntry, bool) {
	if strings.TrimSpace(userAgent) == "" {
		return BotEntry{Name: "Empty User Agent", Category: "Automation"}, true
	}
	for _, bot := range loadBots() {
		re, err := cache.get(bot.Regex)
		if err != nil {
			continue
		}
		if re.MatchString(userAgent) {
			return bot, true
		}
	}
	return BotEntry{}, false
}

// IsBot reports whether userAgent belongs to a crawler or automated client.
func IsBot(userAgent string) bool {
	_, ok := DetectBot(userAgent)
	return ok
}
