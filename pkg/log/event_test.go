package log

import "testing"

func TestStringMethods(t *testing.T) {
	t.Run("Layer", func(t *testing.T) {
		cases := map[Layer]string{
			LayerTransport: "TRANSPORT",
			LayerBlock:     "BLOCK",
			LayerCore:      "CORE",
			Layer(99):      "UNKNOWN",
		}
		for layer, want := range cases {
			if got := layer.String(); got != want {
				t.Errorf("Layer(%d).String() = %q, want %q", layer, got, want)
			}
		}
	})

	t.Run("Category", func(t *testing.T) {
		cases := map[Category]string{
			CategoryLifecycle: "LIFECYCLE",
			CategoryTransfer:  "TRANSFER",
			CategoryReopen:    "REOPEN",
			CategoryCommand:   "COMMAND",
			CategoryError:     "ERROR",
			Category(99):      "UNKNOWN",
		}
		for c, want := range cases {
			if got := c.String(); got != want {
				t.Errorf("Category(%d).String() = %q, want %q", c, got, want)
			}
		}
	})

	t.Run("LifecycleAction", func(t *testing.T) {
		cases := map[LifecycleAction]string{
			ActionAllocated:     "ALLOCATED",
			ActionRegistered:    "REGISTERED",
			ActionUnregistered:  "UNREGISTERED",
			ActionHooked:        "HOOKED",
			ActionUnhooked:      "UNHOOKED",
			ActionReleased:      "RELEASED",
			LifecycleAction(99): "UNKNOWN",
		}
		for a, want := range cases {
			if got := a.String(); got != want {
				t.Errorf("LifecycleAction(%d).String() = %q, want %q", a, got, want)
			}
		}
	})

	t.Run("CommandKind", func(t *testing.T) {
		cases := map[CommandKind]string{
			CommandCapacity: "CAPACITY",
			CommandTransfer: "TRANSFER",
			CommandReset:    "RESET",
			CommandKind(99): "UNKNOWN",
		}
		for k, want := range cases {
			if got := k.String(); got != want {
				t.Errorf("CommandKind(%d).String() = %q, want %q", k, got, want)
			}
		}
	})
}
