package ivr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/nexora/backend/pkg/errors"
)

func fieldPaths(fields []appErrors.FieldError) []string {
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		paths = append(paths, f.Path)
	}
	return paths
}

func TestEditor_StagesUntilSave(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.Edit("greeting-1")
	require.NoError(t, err)

	require.NoError(t, ed.Set("message", "Welcome back"))
	assert.True(t, ed.Dirty())

	n, _ := doc.Node("greeting-1")
	assert.NotEqual(t, "Welcome back", n.Config.(*GreetingConfig).Message, "document changed before save")

	require.NoError(t, ed.Save())
	assert.False(t, ed.Dirty())
	n, _ = doc.Node("greeting-1")
	assert.Equal(t, "Welcome back", n.Config.(*GreetingConfig).Message)
}

func TestEditor_SaveBlockedByValidation(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.Edit("voicemail-1")
	require.NoError(t, err)

	require.NoError(t, ed.Set("message", ""))
	require.NoError(t, ed.Set("email", "not-an-email"))

	err = ed.Save()
	var ve *appErrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"config.message", "config.email"}, fieldPaths(ve.Fields))

	n, _ := doc.Node("voicemail-1")
	assert.Equal(t, "support@example.com", n.Config.(*VoicemailConfig).Email)
	assert.True(t, ed.Dirty())
}

func TestEditor_NewVoicemailCannotSaveWithoutMessage(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.CreateNode(TypeVoicemail, "menu-1")
	require.NoError(t, err)

	assert.True(t, appErrors.IsValidation(ed.Save()))

	require.NoError(t, ed.Set("message", "Leave a message"))
	assert.NoError(t, ed.Save())
}

func TestEditor_MenuOptions(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.Edit("menu-1")
	require.NoError(t, err)

	require.NoError(t, ed.AddOption(MenuOption{Digit: "9", Label: "Directory", Next: "transfer-operator"}))
	require.NoError(t, ed.UpdateOption(0, MenuOption{Digit: "1", Label: "New sales", Next: "queue-sales"}))
	require.NoError(t, ed.RemoveOption(1))

	opts := ed.Options()
	require.Len(t, opts, 3)
	assert.Equal(t, "New sales", opts[0].Label)
	assert.Equal(t, "0", opts[1].Digit)
	assert.Equal(t, "9", opts[2].Digit)

	assert.True(t, appErrors.IsNotFound(ed.UpdateOption(7, MenuOption{})))
	assert.True(t, appErrors.IsNotFound(ed.RemoveOption(-1)))

	require.NoError(t, ed.Save())
	n, _ := doc.Node("menu-1")
	assert.Len(t, n.Config.(*MenuConfig).Options, 3)
}

func TestEditor_MenuContracts(t *testing.T) {
	tests := []struct {
		name   string
		option MenuOption
		path   string
	}{
		{"duplicate digit", MenuOption{Digit: "1", Label: "Again"}, "config.options[3].digit"},
		{"two characters", MenuOption{Digit: "12", Label: "Twelve"}, "config.options[3].digit"},
		{"letter", MenuOption{Digit: "a", Label: "Letter"}, "config.options[3].digit"},
		{"missing label", MenuOption{Digit: "#"}, "config.options[3].label"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := SampleDocument()
			ed, err := doc.Edit("menu-1")
			require.NoError(t, err)
			require.NoError(t, ed.AddOption(tc.option))

			assert.Equal(t, []string{tc.path}, fieldPaths(ed.Validate()))
		})
	}

	t.Run("star and hash are keypad digits", func(t *testing.T) {
		doc := SampleDocument()
		ed, _ := doc.Edit("menu-1")
		require.NoError(t, ed.AddOption(MenuOption{Digit: "*", Label: "Repeat"}))
		require.NoError(t, ed.AddOption(MenuOption{Digit: "#", Label: "Back"}))
		assert.Empty(t, ed.Validate())
	})

	t.Run("menu needs an option", func(t *testing.T) {
		doc := SampleDocument()
		ed, _ := doc.CreateNode(TypeMenu, "")
		require.NoError(t, ed.Set("message", "Choose"))
		assert.Equal(t, []string{"config.options"}, fieldPaths(ed.Validate()))
	})
}

func TestEditor_OptionsOnNonMenuNode(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.Edit("queue-sales")
	require.NoError(t, err)

	assert.Len(t, ed.Options(), 0)
	assert.True(t, appErrors.IsValidation(ed.AddOption(MenuOption{Digit: "1", Label: "x"})))
	assert.True(t, appErrors.IsValidation(ed.SetDay("monday", "09:00", "17:00")))
}

func TestEditor_HoursSchedule(t *testing.T) {
	doc := SampleDocument()
	ed, err := doc.Edit("hours-1")
	require.NoError(t, err)

	require.NoError(t, ed.SetDay("Saturday", "10:00", "14:00"))
	require.NoError(t, ed.CloseDay("monday"))
	require.NoError(t, ed.SetTimezone("Europe/Berlin"))
	assert.True(t, appErrors.IsValidation(ed.SetDay("someday", "10:00", "11:00")))
	assert.Empty(t, ed.Validate())

	require.NoError(t, ed.Save())
	n, _ := doc.Node("hours-1")
	hours := n.Config.(*HoursConfig)
	assert.Equal(t, "Europe/Berlin", hours.Timezone)
	assert.Equal(t, []string{"tuesday", "wednesday", "thursday", "friday", "saturday"}, hours.ScheduleDays())
}

func TestEditor_HoursContracts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(ed *Editor) error
		paths []string
	}{
		{"start after end", func(ed *Editor) error { return ed.SetDay("sunday", "18:00", "09:00") }, []string{"config.schedule.sunday"}},
		{"bad clock", func(ed *Editor) error { return ed.SetDay("sunday", "9am", "17:00") }, []string{"config.schedule.sunday.start"}},
		{"open until midnight", func(ed *Editor) error { return ed.SetDay("sunday", "18:00", "24:00") }, []string{}},
		{"midnight is not a start", func(ed *Editor) error { return ed.SetDay("sunday", "24:00", "24:00") }, []string{"config.schedule.sunday.start"}},
		{"bad timezone", func(ed *Editor) error { return ed.SetTimezone("Mars/Olympus") }, []string{"config.timezone"}},
		{"condition does not compile", func(ed *Editor) error { return ed.Set("condition", "hour >") }, []string{"config.condition"}},
		{"condition compiles", func(ed *Editor) error { return ed.Set("condition", `!IS_WEEKEND(weekday) && hour >= 8`) }, []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := SampleDocument()
			ed, err := doc.Edit("hours-1")
			require.NoError(t, err)
			require.NoError(t, tc.setup(ed))

			assert.Equal(t, tc.paths, fieldPaths(ed.Validate()))
		})
	}
}

func TestEditor_TransferAndQueueContracts(t *testing.T) {
	doc := SampleDocument()

	transfer, _ := doc.Edit("transfer-operator")
	require.NoError(t, transfer.Set("phoneNumber", "555-0100"))
	require.NoError(t, transfer.Set("transferType", "cold"))
	assert.ElementsMatch(t, []string{"config.phoneNumber", "config.transferType"}, fieldPaths(transfer.Validate()))

	queue, _ := doc.Edit("queue-support")
	require.NoError(t, queue.Set("queueName", ""))
	require.NoError(t, queue.Set("maxWaitTime", -5))
	assert.ElementsMatch(t, []string{"config.queueName", "config.maxWaitTime"}, fieldPaths(queue.Validate()))

	assert.True(t, appErrors.IsValidation(queue.Set("maxWaitTime", "forever")))
}

func TestEditor_Discard(t *testing.T) {
	doc := SampleDocument()
	ed, _ := doc.Edit("queue-sales")
	require.NoError(t, ed.Set("queueName", "vip"))

	require.NoError(t, ed.Discard())

	assert.False(t, ed.Dirty())
	assert.Equal(t, "sales", ed.Config().(*QueueConfig).QueueName)
}

func TestEdit_MissingNode(t *testing.T) {
	_, err := SampleDocument().Edit("ghost")
	assert.True(t, appErrors.IsNotFound(err))
}
