// internal/cli/practice/keys.go
package practice

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	OK    key.Binding
	Back  key.Binding
	Dot   key.Binding
	Dash  key.Binding
	Copy  key.Binding
	Quit  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		OK:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ok")),
		Back:  key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "back")),
		Dot:   key.NewBinding(key.WithKeys(".", "z", " "), key.WithHelp("./z/space", "dot")),
		Dash:  key.NewBinding(key.WithKeys("-", "x"), key.WithHelp("-/x", "dash")),
		Copy:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy text")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.OK, k.Back, k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.OK, k.Back, k.Quit},
		{k.Dot, k.Dash, k.Copy},
	}
}

// practiceHelp is shown while keying.
type practiceHelp struct{ keyMap }

func (k practiceHelp) ShortHelp() []key.Binding {
	r, u, d := k.Right, k.Up, k.Down
	r.SetHelp("→/l", "clear")
	u.SetHelp("↑/k", "vol+")
	d.SetHelp("↓/j", "vol-")
	return []key.Binding{k.Dot, k.Dash, r, u, d, k.Copy, k.Back}
}
