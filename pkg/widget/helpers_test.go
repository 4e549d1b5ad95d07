package widget

import "testing"

func TestEl(t *testing.T) {
	n := El("div",
		MustKey("row-1"),
		P("class", "row"),
		Props{"draggable": true},
		On("click", "row-1-click", func() {}),
		Styled("rowStyle", nil, "compact"),
		El("span", "hello"),
		If(false, El("span", "hidden")),
	)

	if n.Kind != KindElement || n.Tag != "div" {
		t.Fatalf("Expected div element, got %s %q", n.Kind, n.Tag)
	}
	if n.Key != MustKey("row-1") {
		t.Errorf("Expected key row-1, got %s", n.Key)
	}
	if n.Props["class"] != "row" || n.Props["draggable"] != true {
		t.Errorf("Expected merged props, got %v", n.Props)
	}
	if cb, ok := n.Callbacks["click"]; !ok || cb.ID != "row-1-click" {
		t.Errorf("Expected click callback row-1-click, got %v", n.Callbacks)
	}
	if n.Style == nil || n.Style.Name != "rowStyle" {
		t.Errorf("Expected rowStyle binding, got %v", n.Style)
	}
	if len(n.Children) != 1 {
		t.Fatalf("Expected 1 child (nil skipped), got %d", len(n.Children))
	}
	if n.Children[0].Children[0].Text != "hello" {
		t.Errorf("Expected text child hello, got %q", n.Children[0].Children[0].Text)
	}
}

func TestCompositeRenderable(t *testing.T) {
	c := Composite("TodoList", El("ul"))
	if c.Renderable() {
		t.Error("Expected composite to be non-renderable")
	}
	if !c.Children[0].Renderable() {
		t.Error("Expected element child to be renderable")
	}
	if Text("x").Renderable() != true {
		t.Error("Expected text node to be renderable")
	}
}

func TestPropsClone(t *testing.T) {
	p := Props{"a": 1}
	c := p.Clone()
	c["a"] = 2
	if p["a"] != 1 {
		t.Errorf("Expected clone isolation, got %v", p["a"])
	}
	if Props(nil).Clone() != nil {
		t.Error("Expected nil clone for nil props")
	}
}
