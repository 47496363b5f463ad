package table

import (
	"fmt"

	"github.com/jacentio/weave/codec"
	"github.com/jacentio/weave/model"
)

// widget is the shared record type for table package tests, grounded on
// spec.md's S1 scenario (PK = "PK#"+foo).
type widget struct {
	Foo string `weave:"foo" validate:"required"`
	Bar int    `weave:"bar"`
}

var widgetCodec = codec.New[widget]()

var widgetKeys = model.KeyProviderFunc[widget](func(w widget) model.Keys {
	return model.Keys{PK: "PK#" + w.Foo, SK: "SK#" + w.Foo}
})

func newWidgetModel() *model.Model[widget] {
	return model.New[widget]("widget", widgetCodec, widgetKeys, nil)
}

// newOrderedWidgetModel derives an SK ordered by an explicit index, used by
// pagination tests that need a stable, predictable ordering across pages.
func newOrderedWidgetModel() *model.Model[widget] {
	keys := model.KeyProviderFunc[widget](func(w widget) model.Keys {
		return model.Keys{PK: "WIDGETS", SK: fmt.Sprintf("SK#%03d", w.Bar)}
	})
	return model.New[widget]("widget", widgetCodec, keys, nil)
}
