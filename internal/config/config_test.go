package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[mainConfig]
appName = "nutri"

[jwtConfig]
secret = "abc"
`)
	conf, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "nutri", conf.AppName)
	assert.Equal(t, 8000, conf.MainConfig.Port)
	assert.Equal(t, MessageModeChannel, conf.MessageMode)
	assert.Equal(t, "nutri_chat_events", conf.EventTopic)
	assert.Equal(t, "nutri", conf.ServiceName)
	assert.NotEmpty(t, conf.InstanceId)
}

func TestLoadFileReadsReminderJobs(t *testing.T) {
	path := writeConfig(t, `
[mainConfig]
messageMode = "channel"

[[reminderConfig.jobs]]
id = "lunch"
spec = "0 12 * * *"
message = "记得记录午餐"

[[reminderConfig.jobs]]
id = "water"
spec = "0 */2 * * *"
message = "喝水时间到了"
`)
	conf, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, conf.Jobs, 2)
	assert.Equal(t, "lunch", conf.Jobs[0].Id)
	assert.Equal(t, "0 */2 * * *", conf.Jobs[1].Spec)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]string{
		"unknown mode": `
[mainConfig]
messageMode = "carrier-pigeon"
`,
		"kafka without brokers": `
[mainConfig]
messageMode = "kafka"
`,
		"nats without url": `
[mainConfig]
messageMode = "nats"
`,
		"duplicate job": `
[[reminderConfig.jobs]]
id = "a"
spec = "* * * * *"

[[reminderConfig.jobs]]
id = "a"
spec = "* * * * *"
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}
