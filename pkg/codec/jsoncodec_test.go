package codec

import "testing"

type sample struct {
	Name string `json:"name"`
}

func TestJSONStrictRejectsUnknownFields(t *testing.T) {
	var s sample
	if err := JSONStrict.Unmarshal([]byte(`{"name":"a","extra":1}`), &s); err == nil {
		t.Fatal("unknown field accepted")
	}
	if err := JSONStrict.Unmarshal([]byte(`{"name":"a"} {"name":"b"}`), &s); err == nil {
		t.Fatal("trailing content accepted")
	}
}

func TestJSONLenientToleratesUnknownFields(t *testing.T) {
	var s sample
	if err := JSONLenient.Unmarshal([]byte(`{"name":"a","extra":1}`), &s); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if s.Name != "a" {
		t.Fatalf("name %q", s.Name)
	}
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	b, err := JSONStrict.Marshal(map[string]string{"u": "/a?b=1&c=2"})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"u":"/a?b=1&c=2"}` {
		t.Fatalf("marshal %s", b)
	}
}
