package botpolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckAllowsPlainMarkup(t *testing.T) {
	d := Check("just some text, no templates", "MyBot")
	assert.True(t, d.Allowed)
}

func TestCheckDeniesNobots(t *testing.T) {
	d := Check("intro {{nobots}} body", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "nobots", d.Reason)
}

func TestCheckNobotsCaseAndSpacingInsensitive(t *testing.T) {
	d := Check("{{ NoBots }}", "MyBot")
	assert.False(t, d.Allowed)
}

func TestCheckAllowsBotsAllowAll(t *testing.T) {
	d := Check("{{bots|allow=all}}", "MyBot")
	assert.True(t, d.Allowed)
}

func TestCheckDeniesBotsAllowNone(t *testing.T) {
	d := Check("{{bots|allow=none}}", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "allow=none", d.Reason)
}

func TestCheckDeniesBotsDenyAll(t *testing.T) {
	d := Check("{{bots|deny=all}}", "MyBot")
	assert.False(t, d.Allowed)
}

func TestCheckDeniesBotsDenyListContainsName(t *testing.T) {
	d := Check("{{bots|deny=OtherBot,MyBot}}", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "deny=list", d.Reason)
}

func TestCheckAllowsBotsDenyListOmitsName(t *testing.T) {
	d := Check("{{bots|deny=OtherBot}}", "MyBot")
	assert.True(t, d.Allowed)
}

func TestCheckAllowsBotsAllowListContainsName(t *testing.T) {
	d := Check("{{bots|allow=MyBot,OtherBot}}", "MyBot")
	assert.True(t, d.Allowed)
}

func TestCheckDeniesBotsAllowListOmitsName(t *testing.T) {
	d := Check("{{bots|allow=OtherBot}}", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "allow=list", d.Reason)
}

func TestCheckDeniesOptout(t *testing.T) {
	d := Check("{{bots|optout=MyBot}}", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "optout", d.Reason)
}

func TestCheckDeniesUnknownParameter(t *testing.T) {
	d := Check("{{bots|frobnicate=yes}}", "MyBot")
	assert.False(t, d.Allowed)
}

func TestCheckDeniesNestedTemplateInsideBots(t *testing.T) {
	d := Check("{{bots|deny={{PAGENAME}}}}", "MyBot")
	assert.False(t, d.Allowed)
	assert.Equal(t, "nested templates — cannot parse", d.Reason)
}

func TestCheckIsCaseInsensitiveOnBotName(t *testing.T) {
	d := Check("{{bots|allow=mybot}}", "MyBot")
	assert.True(t, d.Allowed)
}

func TestCheckIgnoresUnrelatedTemplates(t *testing.T) {
	d := Check("{{cite web|url=http://example.com}}", "MyBot")
	assert.True(t, d.Allowed)
}
