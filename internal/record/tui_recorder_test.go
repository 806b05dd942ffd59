package record

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func TestTUIRecorderMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIRecorder{program: p}
	require.NoError(t, w.Record(sampleSend("Lab", true, time.Unix(0, 0).UTC())))
	w.Logf("transport error: %s", "refused")

	require.Len(t, p.msgs, 2)
	_, ok := p.msgs[0].(sendMsg)
	assert.True(t, ok, "expected sendMsg, got %T", p.msgs[0])
	lm, ok := p.msgs[1].(logMsg)
	require.True(t, ok)
	assert.Equal(t, "transport error: refused", lm.line)
}

func TestTUIRecorderWriteSplitsLines(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIRecorder{program: p}
	n, err := w.Write([]byte("level=WARN msg=one\n\nlevel=INFO msg=two\n"))
	require.NoError(t, err)
	assert.Equal(t, 39, n)
	require.Len(t, p.msgs, 2)
	assert.Equal(t, "level=WARN msg=one", p.msgs[0].(logMsg).line)
	assert.Equal(t, "level=INFO msg=two", p.msgs[1].(logMsg).line)
}

func TestTUIModelTracksChannels(t *testing.T) {
	m := newTUIModel([]string{"living room"})
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = mi.(tuiModel)

	mi, _ = m.Update(sendMsg{sampleSend("bedroom", false, time.Unix(0, 0).UTC())})
	m = mi.(tuiModel)
	mi, _ = m.Update(sendMsg{sampleSend("bedroom", true, time.Unix(1, 0).UTC())})
	m = mi.(tuiModel)

	assert.Equal(t, []string{"living room", "bedroom"}, m.channels)
	assert.Equal(t, 2, m.sent["bedroom"])
	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "-", rows[0][2])
	assert.Equal(t, "ok", rows[1][2])
	assert.Equal(t, "2", rows[1][1])
	assert.Len(t, m.logs, 2)
	assert.Contains(t, m.View(), "ThingSpeak uploads")
}

func TestTUIModelWrapToggleAndQuit(t *testing.T) {
	m := newTUIModel(nil)
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 20})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "one two three four five six seven"})
	m = mi.(tuiModel)
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("w")})
	m = mi.(tuiModel)
	assert.True(t, m.wrap)
	assert.Greater(t, strings.Count(m.vp.View(), "\n"), 0)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestTUILogTrimmed(t *testing.T) {
	m := newTUIModel(nil)
	for i := 0; i < maxLogLines+10; i++ {
		m.appendLog("line")
	}
	assert.Len(t, m.logs, maxLogLines)
}
