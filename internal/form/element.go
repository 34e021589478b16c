// Package form describes admin forms as a plain tree of typed elements.
//
// The tree is declarative: it carries field types, options, defaults and
// conditional visibility, and leaves rendering to whatever UI consumes it.
// Conditional visibility is expressed with States that reference another
// element by its stable Identifier rather than by a rendered selector.
package form

// ElementType is the kind of input (or grouping) an Element represents.
type ElementType string

// Supported element types.
const (
	TypeContainer ElementType = "container"
	TypeSelect    ElementType = "select"
	TypeTextfield ElementType = "textfield"
	TypeTextarea  ElementType = "textarea"
)

// EmptyValue is the option value that stands for "nothing selected".
const EmptyValue = ""

// Option is one id -> label choice of a select or checkboxes element.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Condition matches when the element identified by Field currently holds Value.
type Condition struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// States binds client-side visibility to the value of other elements.
// A renderer shows the element when any Visible condition matches (or none
// are set) and no Invisible condition matches.
type States struct {
	Visible   []Condition `json:"visible,omitempty"`
	Invisible []Condition `json:"invisible,omitempty"`
}

// Element is a node of the form tree. Name is the key of the element's value
// inside its parent's submitted value tree.
type Element struct {
	Type        ElementType       `json:"type"`
	Name        string            `json:"name"`
	Identifier  string            `json:"identifier,omitempty"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Options     []Option          `json:"options,omitempty"`
	Multiple    bool              `json:"multiple,omitempty"`
	Required    bool              `json:"required,omitempty"`
	Default     any               `json:"default,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	States      *States           `json:"states,omitempty"`
	Error       string            `json:"error,omitempty"`
	Children    []*Element        `json:"children,omitempty"`
}

// Container groups children under name.
func Container(name string, children ...*Element) *Element {
	return &Element{Type: TypeContainer, Name: name, Children: children}
}

// Select builds a single-value select.
func Select(name, title string, options []Option) *Element {
	return &Element{Type: TypeSelect, Name: name, Title: title, Options: options}
}

// MultiSelect builds a select accepting several values.
func MultiSelect(name, title string, options []Option) *Element {
	return &Element{Type: TypeSelect, Name: name, Title: title, Options: options, Multiple: true}
}

// Textfield builds a single line text input.
func Textfield(name, title string) *Element {
	return &Element{Type: TypeTextfield, Name: name, Title: title}
}

// Textarea builds a multi line text input.
func Textarea(name, title string) *Element {
	return &Element{Type: TypeTextarea, Name: name, Title: title}
}

// WithDefault sets the default value and returns e for chaining.
func (e *Element) WithDefault(v any) *Element {
	e.Default = v
	return e
}

// WithDescription sets the help text and returns e for chaining.
func (e *Element) WithDescription(d string) *Element {
	e.Description = d
	return e
}

// VisibleWhen shows e only while the element identified by field holds value.
func (e *Element) VisibleWhen(field, value string) *Element {
	if e.States == nil {
		e.States = &States{}
	}
	e.States.Visible = append(e.States.Visible, Condition{Field: field, Value: value})
	return e
}

// InvisibleWhen hides e while the element identified by field holds value.
func (e *Element) InvisibleWhen(field, value string) *Element {
	if e.States == nil {
		e.States = &States{}
	}
	e.States.Invisible = append(e.States.Invisible, Condition{Field: field, Value: value})
	return e
}

// SetAttribute stores a rendering attribute (e.g. a CSS class).
func (e *Element) SetAttribute(key, value string) *Element {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// Append adds children to a container.
func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Child returns the direct child called name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Find walks the tree following names and returns the element at the end of
// the path, or nil if any step is missing.
func (e *Element) Find(path ...string) *Element {
	cur := e
	for _, name := range path {
		if cur = cur.Child(name); cur == nil {
			return nil
		}
	}
	return cur
}
