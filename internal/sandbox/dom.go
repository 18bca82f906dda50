package sandbox

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
)

var tagPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

// DOM is the document a page navigated to. Scripts see it through a small
// proxy: selectors, attributes and text, but no layout.
type DOM struct {
	doc *goquery.Document
}

// ParseDOM parses an HTML document
func ParseDOM(html string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &DOM{doc: doc}, nil
}

// NewDOM wraps an already parsed document
func NewDOM(doc *goquery.Document) *DOM {
	return &DOM{doc: doc}
}

// blankDOM is the document of about:blank
func blankDOM() *DOM {
	dom, _ := ParseDOM("<html><head></head><body></body></html>")
	return dom
}

// Title returns the document title
func (d *DOM) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// HTML renders the current document
func (d *DOM) HTML() (string, error) {
	return d.doc.Html()
}

// Query finds elements by CSS selector. Invalid selectors match nothing.
func (d *DOM) Query(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// bind builds the document object exposed to page scripts
func (d *DOM) bind(vm *goja.Runtime, window *goja.Object) *goja.Object {
	document := vm.NewObject()

	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return d.first(vm, d.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return d.all(vm, d.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		return d.first(vm, d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}))
	})
	_ = document.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		tag := call.Argument(0).String()
		if !tagPattern.MatchString(tag) && tag != "*" {
			return vm.NewArray()
		}
		return d.all(vm, d.doc.Find(tag))
	})
	_ = document.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		fields := strings.Fields(call.Argument(0).String())
		if len(fields) == 0 {
			return vm.NewArray()
		}
		sel := d.doc.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			for _, class := range fields {
				if !s.HasClass(class) {
					return false
				}
			}
			return true
		})
		return d.all(vm, sel)
	})
	_ = document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		if !tagPattern.MatchString(tag) {
			panic(vm.NewTypeError("invalid tag name: %s", tag))
		}
		frag, err := goquery.NewDocumentFromReader(strings.NewReader("<" + tag + "></" + tag + ">"))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return d.element(vm, frag.Find(tag).First())
	})

	_ = document.Set("readyState", "complete")
	_ = document.Set("title", d.Title())
	_ = document.Set("documentElement", d.first(vm, d.doc.Find("html")))
	_ = document.Set("head", d.first(vm, d.doc.Find("head")))
	_ = document.Set("body", d.first(vm, d.doc.Find("body")))

	// Document events share the window's listener table
	for _, name := range []string{"addEventListener", "removeEventListener"} {
		name := name
		_ = document.Set(name, func(call goja.FunctionCall) goja.Value {
			fn, ok := goja.AssertFunction(window.Get(name))
			if !ok {
				return goja.Undefined()
			}
			v, err := fn(window, call.Arguments...)
			if err != nil {
				panic(err)
			}
			return v
		})
	}

	return document
}

func (d *DOM) first(vm *goja.Runtime, sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	return d.element(vm, sel.First())
}

func (d *DOM) all(vm *goja.Runtime, sel *goquery.Selection) goja.Value {
	items := make([]interface{}, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		items = append(items, d.element(vm, s))
	})
	return vm.NewArray(items...)
}

// element builds a proxy for a single node. Text and attributes are live.
func (d *DOM) element(vm *goja.Runtime, sel *goquery.Selection) *goja.Object {
	el := vm.NewObject()

	tag := ""
	if node := sel.Get(0); node != nil {
		tag = strings.ToUpper(node.Data)
	}
	_ = el.Set("tagName", tag)
	_ = el.Set("nodeName", tag)

	attr := func(name string) func(goja.FunctionCall) goja.Value {
		return func(goja.FunctionCall) goja.Value {
			v, _ := sel.Attr(name)
			return vm.ToValue(v)
		}
	}
	_ = el.DefineAccessorProperty("id", vm.ToValue(attr("id")), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		sel.SetAttr("id", call.Argument(0).String())
		return goja.Undefined()
	}), goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = el.DefineAccessorProperty("className", vm.ToValue(attr("class")), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		sel.SetAttr("class", call.Argument(0).String())
		return goja.Undefined()
	}), goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = el.DefineAccessorProperty("textContent", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(sel.Text())
	}), vm.ToValue(func(call goja.FunctionCall) goja.Value {
		sel.SetText(call.Argument(0).String())
		return goja.Undefined()
	}), goja.FLAG_TRUE, goja.FLAG_TRUE)

	_ = el.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		v, ok := sel.Attr(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = el.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := sel.Attr(call.Argument(0).String())
		return vm.ToValue(ok)
	})
	_ = el.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		sel.SetAttr(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = el.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		sel.RemoveAttr(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = el.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return d.first(vm, sel.Find(call.Argument(0).String()))
	})
	_ = el.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return d.all(vm, sel.Find(call.Argument(0).String()))
	})
	_ = el.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		// Layout is not modelled; the child is returned unchanged
		return call.Argument(0)
	})
	_ = el.Set("remove", func(goja.FunctionCall) goja.Value {
		sel.Remove()
		return goja.Undefined()
	})

	return el
}
