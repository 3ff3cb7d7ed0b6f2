package bot

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestCallbackRoundTrip(t *testing.T) {
	ids := []int64{1, 7, 42, 1 << 40, math.MaxInt64}
	for _, op := range []CallbackOp{CallbackDelete, CallbackEdit} {
		for _, id := range ids {
			gotOp, gotID, err := ParseCallback(EncodeCallback(op, id))
			if err != nil {
				t.Fatalf("%s %d: %v", op, id, err)
			}
			if gotOp != op || gotID != id {
				t.Fatalf("round trip %s %d -> %s %d", op, id, gotOp, gotID)
			}
		}
	}
}

func TestParseCallbackErrors(t *testing.T) {
	for _, data := range []string{"", "del", "del_", "edit_x", "edit_0", "del_-1", "remove_5", "del_9223372036854775808"} {
		if _, _, err := ParseCallback(data); !errors.Is(err, ErrInvalidCallback) {
			t.Errorf("ParseCallback(%q) error = %v, want ErrInvalidCallback", data, err)
		}
	}
}

func TestMatchLabel(t *testing.T) {
	for _, a := range Actions {
		got, ok := MatchLabel(a.Label())
		if !ok || got != a {
			t.Errorf("MatchLabel(%q) = %q, %v", a.Label(), got, ok)
		}
	}
	if _, ok := MatchLabel("Income"); ok {
		t.Error("partial label matched")
	}
}
