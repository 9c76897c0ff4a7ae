package render

// Option is one choice of a select field
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Field describes one form input. Type is an HTML input type plus
// "select" and "textarea".
type Field struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Help        string
	Min, Max    string
	Required    bool
	Options     []Option
}

// Form is a form descriptor. Method defaults to POST.
type Form struct {
	Title  string
	Action string
	Method string
	Submit string
	Fields []Field
}

// Multipart reports whether the form carries a file input
func (f *Form) Multipart() bool {
	for _, fl := range f.Fields {
		if fl.Type == "file" {
			return true
		}
	}
	return false
}

// HTTPMethod is the form's method attribute
func (f *Form) HTTPMethod() string {
	if f.Method == "" {
		return "post"
	}
	return f.Method
}

// Options builds select options marking the one equal to selected
func Options(selected string, pairs ...string) []Option {
	var out []Option
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Option{Value: pairs[i], Label: pairs[i+1], Selected: pairs[i] == selected})
	}
	return out
}
