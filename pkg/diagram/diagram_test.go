package diagram

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stridegraph/pkg/model"
)

// =============================================================================
// Fixtures
// =============================================================================

// sequentialIDs returns an IDFunc yielding id-1, id-2, ...
func sequentialIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func process(name string) model.Node {
	return model.Node{Name: name, Kind: model.KindProcess}
}

func outside(name, boundary string) model.Node {
	return model.Node{Name: name, Kind: model.KindProcess, OutOfScope: model.Bool(true), TrustBoundary: boundary}
}

func flow(name, src, dst string) model.Node {
	return model.Node{Name: name, Kind: model.KindFlow, Source: src, Destination: dst}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func cellNamed(t *testing.T, cells []Cell, name string) Cell {
	t.Helper()
	for _, c := range cells {
		if c.Data.Name == name {
			return c
		}
	}
	t.Fatalf("no cell named %q", name)
	return Cell{}
}

// =============================================================================
// Partition
// =============================================================================

func TestPartition(t *testing.T) {
	parent := model.InputDiagram{
		Title: "P",
		Nodes: []model.Node{process("A"), process("B"), process("C"), flow("F1", "A", "B"), flow("F2", "B", "C")},
	}
	scopes := []model.SubScope{
		{Name: "child", Parent: "P", Description: "just A and B", Nodes: []string{"B", "A"}},
		{Name: "elsewhere", Parent: "Q", Nodes: []string{"A"}},
	}

	children := Partition(parent, scopes)
	if len(children) != 1 {
		t.Fatalf("Partition() returned %d children, want 1", len(children))
	}
	child := children[0]
	if child.Title != "child" || child.Description != "just A and B" {
		t.Errorf("child = %q/%q", child.Title, child.Description)
	}

	var got []string
	for _, n := range child.Nodes {
		got = append(got, n.Name)
	}
	if diff := cmp.Diff([]string{"A", "B", "F1"}, got); diff != "" {
		t.Errorf("child nodes mismatch (-want +got):\n%s", diff)
	}
}

func TestPartitionUnknownParent(t *testing.T) {
	parent := model.InputDiagram{Title: "P", Nodes: []model.Node{process("A")}}
	if got := Partition(parent, []model.SubScope{{Name: "x", Parent: "nope", Nodes: []string{"A"}}}); len(got) != 0 {
		t.Errorf("Partition() = %v, want none", got)
	}
}

func TestExpand(t *testing.T) {
	diagrams := []model.InputDiagram{
		{Title: "P", Nodes: []model.Node{process("A")}},
		{Title: "Q", Nodes: []model.Node{process("B")}},
	}
	cfg := &model.Config{Diagrams: []model.SubScope{
		{Name: "Q1", Parent: "Q", Nodes: []string{"B"}},
		{Name: "P1", Parent: "P", Nodes: []string{"A"}},
		{Name: "Z1", Parent: "Z"},
	}}

	var titles []string
	for _, d := range Expand(diagrams, cfg) {
		titles = append(titles, d.Title)
	}
	if diff := cmp.Diff([]string{"P", "P1", "Q", "Q1"}, titles); diff != "" {
		t.Errorf("Expand() titles mismatch (-want +got):\n%s", diff)
	}

	orphans := OrphanScopes(diagrams, cfg)
	if len(orphans) != 1 || orphans[0].Name != "Z1" {
		t.Errorf("OrphanScopes() = %v, want [Z1]", orphans)
	}
}

// =============================================================================
// Cell mapping
// =============================================================================

func TestMapNodeProcess(t *testing.T) {
	catalog := model.Catalog{
		{Title: "Spoof", Status: model.StatusOpen, Severity: model.SeverityHigh, Category: model.Spoofing},
	}
	b := NewBuilder(WithIDFunc(sequentialIDs()))

	tests := []struct {
		name       string
		node       model.Node
		wantStroke string
		wantWidth  float64
		wantDash   string
		wantOpen   bool
		wantCount  int
	}{
		{"neutral", process("A"), "#333333", 3, "", false, 0},
		{"warning", model.Node{Name: "A", Kind: model.KindProcess, Threats: []string{"Spoof"}}, "red", 1.5, "", true, 1},
		{"unknown threat dropped", model.Node{Name: "A", Kind: model.KindProcess, Threats: []string{"Nope"}}, "#333333", 3, "", false, 0},
		{"out of scope", outside("A", ""), "#333333", 3, "4 3", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := b.MapNode(tt.node, catalog)
			if c.Shape != ShapeProcess || c.Data.Type != DataTypeProcess || c.ZIndex != 1 {
				t.Errorf("shape/type/z = %s/%s/%d", c.Shape, c.Data.Type, c.ZIndex)
			}
			attrs, ok := c.Attrs.(ProcessAttrs)
			if !ok {
				t.Fatalf("Attrs = %T, want ProcessAttrs", c.Attrs)
			}
			if attrs.Text.Text != "A" {
				t.Errorf("text = %q", attrs.Text.Text)
			}
			if attrs.Body.Stroke != tt.wantStroke || attrs.Body.StrokeWidth != tt.wantWidth || attrs.Body.StrokeDasharray != tt.wantDash {
				t.Errorf("body = %+v", attrs.Body)
			}
			if c.Data.HasOpenThreats != tt.wantOpen || len(c.Data.Threats) != tt.wantCount {
				t.Errorf("open=%v threats=%d", c.Data.HasOpenThreats, len(c.Data.Threats))
			}
			if c.Position != nil || c.Size != nil {
				t.Error("mapped cell should not be placed yet")
			}
		})
	}
}

func TestMapNodeFlow(t *testing.T) {
	b := NewBuilder()
	n := flow("F1", "A", "B")
	n.OutOfScope = model.Bool(true)

	c := b.MapNode(n, nil)
	if c.Shape != ShapeFlow || c.Data.Type != DataTypeFlow {
		t.Fatalf("shape/type = %s/%s", c.Shape, c.Data.Type)
	}
	attrs, ok := c.Attrs.(FlowAttrs)
	if !ok {
		t.Fatalf("Attrs = %T, want FlowAttrs", c.Attrs)
	}
	want := Line{Stroke: "#333333", StrokeWidth: 3, TargetMarker: Marker{Name: "block"}}
	if diff := cmp.Diff(want, attrs.Line); diff != "" {
		t.Errorf("line mismatch (-want +got):\n%s", diff)
	}
	if c.Data.OutOfScope == nil || !*c.Data.OutOfScope {
		t.Error("outOfScope not carried over")
	}
}

func TestMapNodeOutOfScopeFlag(t *testing.T) {
	tests := []struct {
		name string
		flag *bool
	}{
		{"unset", nil},
		{"false", model.Bool(false)},
		{"true", model.Bool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := flow("F1", "A", "B")
			n.OutOfScope = tt.flag

			got := NewBuilder().MapNode(n, nil).Data.OutOfScope
			if diff := cmp.Diff(tt.flag, got); diff != "" {
				t.Errorf("outOfScope mismatch (-want +got):\n%s", diff)
			}
			if tt.flag != nil && got == tt.flag {
				t.Error("outOfScope aliases the input node")
			}
		})
	}
}

func TestMapNodeThreatLastMatch(t *testing.T) {
	catalog := model.Catalog{
		{Title: "T", Status: model.StatusOpen, Severity: model.SeverityLow, Category: model.Tampering},
		{Title: "T", Status: model.StatusMitigated, Severity: model.SeverityHigh, Category: model.InformationDisclosure, Mitigation: "encrypt"},
	}
	b := NewBuilder(WithIDFunc(sequentialIDs()))
	c := b.MapNode(model.Node{Name: "A", Kind: model.KindProcess, Threats: []string{"T"}}, catalog)

	want := []Threat{{
		ID:         "id-1",
		Title:      "T",
		Status:     "Mitigated",
		Severity:   "High",
		Type:       "Information disclosure",
		Mitigation: "encrypt",
		ModelType:  "STRIDE",
		Number:     1,
	}}
	if diff := cmp.Diff(want, c.Data.Threats); diff != "" {
		t.Errorf("threats mismatch (-want +got):\n%s", diff)
	}
	if c.ID != "id-2" {
		t.Errorf("cell id = %q, want id-2 (threat ids are drawn first)", c.ID)
	}
	if c.Data.HasOpenThreats {
		t.Error("mitigated threat reported as open")
	}
	if _, ok := c.Attrs.(ProcessAttrs); !ok || c.Attrs.(ProcessAttrs).Body.Stroke != "red" {
		t.Error("resolved threat should switch to warning style")
	}
}

func TestMapNodeIdempotent(t *testing.T) {
	catalog := model.Catalog{{Title: "T", Status: model.StatusOpen, Severity: model.SeverityLow, Category: model.Spoofing}}
	nodes := []model.Node{
		{Name: "A", Kind: model.KindProcess, Threats: []string{"T"}},
		flow("F", "A", "A"),
	}
	b := NewBuilder()

	ignoreIDs := cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().String() == ".ID"
	}, cmp.Ignore())
	for _, n := range nodes {
		first, second := b.MapNode(n, catalog), b.MapNode(n, catalog)
		if first.ID == second.ID {
			t.Errorf("%s: ids not fresh", n.Name)
		}
		if diff := cmp.Diff(first, second, ignoreIDs); diff != "" {
			t.Errorf("%s: mapping not idempotent (-first +second):\n%s", n.Name, diff)
		}
	}
}

// =============================================================================
// Endpoint resolution
// =============================================================================

func TestResolve(t *testing.T) {
	nodes := []model.Node{process("A"), process("B"), flow("F1", "A", "B"), flow("F2", "A", "Ghost"), flow("F3", "a", "B")}
	b := NewBuilder(WithIDFunc(sequentialIDs()))
	var cells []Cell
	for _, n := range nodes {
		cells = append(cells, b.MapNode(n, nil))
	}

	dangling := Resolve(cells, nodes)

	f1 := cellNamed(t, cells, "F1")
	if f1.Source == nil || f1.Source.Cell != cellNamed(t, cells, "A").ID {
		t.Errorf("F1 source = %v", f1.Source)
	}
	if f1.Target == nil || f1.Target.Cell != cellNamed(t, cells, "B").ID {
		t.Errorf("F1 target = %v", f1.Target)
	}
	if diff := cmp.Diff([]string{"F1"}, f1.Labels); diff != "" {
		t.Errorf("F1 labels (-want +got):\n%s", diff)
	}

	f2 := cellNamed(t, cells, "F2")
	if f2.Source == nil || f2.Target != nil {
		t.Errorf("F2 endpoints = %v/%v, want source only", f2.Source, f2.Target)
	}

	f3 := cellNamed(t, cells, "F3")
	if f3.Source != nil {
		t.Error("endpoint names must match case-sensitively")
	}

	want := []Dangling{
		{Flow: "F2", End: "destination", Name: "Ghost"},
		{Flow: "F3", End: "source", Name: "a"},
	}
	if diff := cmp.Diff(want, dangling); diff != "" {
		t.Errorf("dangling mismatch (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Layout
// =============================================================================

func TestRegions(t *testing.T) {
	nodes := []model.Node{
		outside("Browser", "Internet"),
		process("API"),
		outside("Mailer", ""),
		outside("CDN", "Internet"),
		process("DB"),
	}

	regions := Regions(nodes, DefaultLayoutOptions())

	var names []string
	for _, r := range regions {
		names = append(names, r.Name)
	}
	if diff := cmp.Diff([]string{"Internet", "Center", "South"}, names); diff != "" {
		t.Fatalf("region order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Browser", "CDN"}, regions[0].Members); diff != "" {
		t.Errorf("Internet members (-want +got):\n%s", diff)
	}

	if c := regions[1].Center; c.X != 500 || c.Y != 500 {
		t.Errorf("Center region at %v, want (500,500)", c)
	}
	// Internet is non-Center region 0 of 3: angle 0.
	if c := regions[0].Center; !near(c.X, 950) || !near(c.Y, 500) {
		t.Errorf("Internet region at %v, want (950,500)", c)
	}
	// South is non-Center region 1 of 3: angle 2π/3.
	a := 2 * math.Pi / 3
	if c := regions[2].Center; !near(c.X, 500+450*math.Cos(a)) || !near(c.Y, 500+450*math.Sin(a)) {
		t.Errorf("South region at %v", c)
	}
}

func TestLayout(t *testing.T) {
	nodes := []model.Node{process("A"), process("B"), flow("F", "A", "B"), outside("X", "")}
	b := NewBuilder()
	var cells []Cell
	for _, n := range nodes {
		cells = append(cells, b.MapNode(n, nil))
	}

	Layout(cells, nodes, DefaultLayoutOptions())

	// Center has three members (A, B and the flow); A is k=1, B is k=2.
	for _, tc := range []struct {
		name string
		k    float64
	}{{"A", 1}, {"B", 2}} {
		c := cellNamed(t, cells, tc.name)
		a := 2 * math.Pi * tc.k / 3
		if c.Position == nil || !near(c.Position.X, 500+120*math.Cos(a)) || !near(c.Position.Y, 500+120*math.Sin(a)) {
			t.Errorf("%s at %v", tc.name, c.Position)
		}
		if c.Size == nil || *c.Size != (Size{Width: 140, Height: 140}) {
			t.Errorf("%s size = %v", tc.name, c.Size)
		}
	}

	if f := cellNamed(t, cells, "F"); f.Position != nil || f.Size != nil {
		t.Error("flow cells must not be placed")
	}

	// South is non-Center region 0 of 2 and X its only member.
	x := cellNamed(t, cells, "X")
	if !near(x.Position.X, 950+120) || !near(x.Position.Y, 500) {
		t.Errorf("X at %v, want (1070,500)", x.Position)
	}
}

func TestLayoutOptionsDefaults(t *testing.T) {
	got := LayoutOptions{Margin: 10}.withDefaults()
	want := DefaultLayoutOptions()
	want.Margin = 10
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("withDefaults() (-want +got):\n%s", diff)
	}
}

// =============================================================================
// Boundaries
// =============================================================================

func TestBoundingBox(t *testing.T) {
	size := Size{Width: 140, Height: 140}
	cells := []Cell{
		{Shape: ShapeProcess, Data: CellData{Name: "a"}, Position: &Position{0, 0}, Size: &size},
		{Shape: ShapeProcess, Data: CellData{Name: "b"}, Position: &Position{100, 0}, Size: &size},
		{Shape: ShapeProcess, Data: CellData{Name: "c"}, Position: &Position{0, 100}, Size: &size},
		{Shape: ShapeProcess, Data: CellData{Name: "far"}, Position: &Position{900, 900}, Size: &size},
	}

	pos, got, ok := BoundingBox(cells, []string{"a", "b", "c"}, 40)
	if !ok {
		t.Fatal("BoundingBox() reported no placed members")
	}
	if pos != (Position{X: -40, Y: -40}) {
		t.Errorf("position = %v, want (-40,-40)", pos)
	}
	if want := (Size{Width: 100 + 140 + 80, Height: 100 + 140 + 80}); got != want {
		t.Errorf("size = %v, want %v", got, want)
	}

	if _, _, ok := BoundingBox(cells, []string{"missing"}, 40); ok {
		t.Error("BoundingBox() ok for unplaced members")
	}
}

func TestBoundaries(t *testing.T) {
	nodes := []model.Node{
		outside("Browser", "Internet"),
		outside("CDN", "Internet"),
		process("API"),
		{Name: "Ghost", Kind: model.KindProcess, TrustBoundary: "Phantom"},
	}
	b := NewBuilder(WithIDFunc(sequentialIDs()))
	var cells []Cell
	for _, n := range nodes[:3] {
		cells = append(cells, b.MapNode(n, nil))
	}
	Layout(cells, nodes, b.LayoutOptions())

	boxes := b.Boundaries(cells, nodes)
	if len(boxes) != 1 {
		t.Fatalf("Boundaries() returned %d boxes, want 1 (Phantom has no cells)", len(boxes))
	}
	box := boxes[0]
	if box.Shape != ShapeBoundary || box.ZIndex != 0 || box.Data.Type != DataTypeBoundary || box.Data.Name != "Internet" {
		t.Errorf("box = %+v", box)
	}
	if attrs, ok := box.Attrs.(BoundaryAttrs); !ok || attrs.HeaderText.Text != "Internet" {
		t.Errorf("box attrs = %#v", box.Attrs)
	}
	if box.Data.Threats == nil || len(box.Data.Threats) != 0 {
		t.Errorf("box threats = %v, want empty", box.Data.Threats)
	}

	for _, name := range []string{"Browser", "CDN"} {
		c := cellNamed(t, cells, name)
		if c.Position.X < box.Position.X || c.Position.Y < box.Position.Y ||
			c.Position.X+140 > box.Position.X+float64(box.Size.Width) ||
			c.Position.Y+140 > box.Position.Y+float64(box.Size.Height) {
			t.Errorf("%s at %v escapes box %v %v", name, c.Position, box.Position, box.Size)
		}
	}
}

// =============================================================================
// Assembly
// =============================================================================

func TestBuild(t *testing.T) {
	in := model.InputDiagram{
		Title:       "Shop",
		Description: "storefront",
		Nodes: []model.Node{
			outside("Browser", "Internet"),
			process("API"),
			flow("Checkout", "Browser", "API"),
			flow("Broken", "API", "Nowhere"),
		},
	}
	b := NewBuilder(WithIDFunc(sequentialIDs()))

	d := b.Build(3, in, nil, "2.2.0")

	if d.ID != 3 || d.Title != "Shop" || d.Placeholder != "storefront" || d.Version != "2.2.0" {
		t.Errorf("header = %d/%q/%q/%q", d.ID, d.Title, d.Placeholder, d.Version)
	}
	if d.DiagramType != "STRIDE" || d.Thumbnail != "./public/content/images/thumbnail.stride.jpg" {
		t.Errorf("type/thumbnail = %q/%q", d.DiagramType, d.Thumbnail)
	}
	if len(d.Cells) != 5 {
		t.Fatalf("cells = %d, want 4 nodes + 1 boundary", len(d.Cells))
	}
	if d.Cells[4].Shape != ShapeBoundary {
		t.Errorf("last cell = %s, want boundary", d.Cells[4].Shape)
	}

	checkout, _ := d.Cell("Checkout")
	browser, _ := d.Cell("Browser")
	if checkout.Source == nil || checkout.Source.Cell != browser.ID {
		t.Errorf("Checkout source = %v", checkout.Source)
	}
	broken, _ := d.Cell("Broken")
	if broken.Target != nil {
		t.Error("dangling destination should leave target unset")
	}
	if _, ok := d.CellByID(broken.Source.Cell); !ok {
		t.Error("Broken source does not reference a cell")
	}
}

func TestBuildAll(t *testing.T) {
	diagrams := []model.InputDiagram{
		{Title: "Zeta", Nodes: []model.Node{process("A"), process("B"), flow("F", "A", "B")}},
		{Title: "Alpha", Nodes: []model.Node{process("C")}},
	}
	cfg := &model.Config{
		ThreatDragonVersion: "2.2.0",
		Diagrams:            []model.SubScope{{Name: "Mid", Parent: "Zeta", Nodes: []string{"A", "B"}}},
	}

	got := NewBuilder().BuildAll(diagrams, cfg, nil)

	var summary []string
	for _, d := range got {
		summary = append(summary, fmt.Sprintf("%s#%d/%d", d.Title, d.ID, len(d.Cells)))
	}
	if diff := cmp.Diff([]string{"Alpha#2/1", "Mid#1/3", "Zeta#0/3"}, summary); diff != "" {
		t.Errorf("BuildAll() (-want +got):\n%s", diff)
	}
	for _, d := range got {
		if d.Version != "2.2.0" {
			t.Errorf("%s version = %q", d.Title, d.Version)
		}
	}
}

func TestBuildAllTitleCollision(t *testing.T) {
	diagrams := []model.InputDiagram{
		{Title: "Same", Nodes: []model.Node{process("first")}},
		{Title: "Same", Nodes: []model.Node{process("second")}},
	}
	got := NewBuilder().BuildAll(diagrams, &model.Config{}, nil)
	if len(got) != 1 {
		t.Fatalf("BuildAll() = %d diagrams, want 1", len(got))
	}
	if _, ok := got[0].Cell("second"); !ok || got[0].ID != 1 {
		t.Errorf("later diagram should win, got id %d", got[0].ID)
	}
}

// =============================================================================
// JSON
// =============================================================================

func TestCellJSON(t *testing.T) {
	b := NewBuilder(WithIDFunc(sequentialIDs()))
	d := b.Build(0, model.InputDiagram{
		Title: "T",
		Nodes: []model.Node{outside("A", "Zone"), process("B"), flow("F", "A", "B")},
	}, nil, "2.2.0")

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var back Diagram
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff(d, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	cells := raw["cells"].([]any)
	flowCell := cells[2].(map[string]any)
	if _, ok := flowCell["position"]; ok {
		t.Error("flow cell should not serialize a position")
	}
	line := flowCell["attrs"].(map[string]any)["line"].(map[string]any)
	if line["targetMarker"].(map[string]any)["name"] != "block" {
		t.Errorf("targetMarker = %v", line["targetMarker"])
	}
}

func TestCellUnmarshalUnknownShape(t *testing.T) {
	var c Cell
	if err := json.Unmarshal([]byte(`{"shape":"blob","id":"x","attrs":{}}`), &c); err == nil {
		t.Error("expected error for unknown shape")
	}
}
