package sandbox

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
)

// prelude installs browser-ish globals that are simpler to express in JS.
const prelude = `(function (g) {
	var listeners = {};
	g.addEventListener = function (type, fn) {
		(listeners[type] = listeners[type] || []).push(fn);
	};
	g.removeEventListener = function (type, fn) {
		var list = listeners[type];
		if (!list) return;
		var i = list.indexOf(fn);
		if (i >= 0) list.splice(i, 1);
	};
	g.dispatchEvent = function (event) {
		(listeners[event.type] || []).slice().forEach(function (fn) {
			fn.call(g, event);
		});
		return true;
	};
	g.queueMicrotask = function (fn) {
		Promise.resolve().then(fn);
	};
})(globalThis)`

// harness calls fn with args, awaits the result and reports it as JSON text.
const harness = `(function (fn, args, ok, fail) {
	try {
		var out = typeof fn === 'function' ? fn.apply(undefined, args) : fn;
		Promise.resolve(out).then(function (v) {
			var text;
			try {
				text = v === undefined ? undefined : JSON.stringify(v);
			} catch (e) {
				fail(e);
				return;
			}
			ok(text);
		}, fail);
	} catch (e) {
		fail(e);
	}
})`

type timer struct {
	t      *time.Timer
	fn     goja.Callable
	args   []goja.Value
	every  time.Duration
	repeat bool
}

// runtime is one document's JS world. Only the page loop touches it.
type runtime struct {
	vm   *goja.Runtime
	page *Page
	dom  *DOM

	timers    map[int64]*timer
	nextTimer int64

	rejected map[*goja.Promise]struct{}
	order    []*goja.Promise

	call  goja.Callable
	parse goja.Callable
}

func newRuntime(p *Page, href *url.URL, dom *DOM) (*runtime, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(p.cfg.MaxCallStack)

	r := &runtime{
		vm:       vm,
		page:     p,
		dom:      dom,
		timers:   make(map[int64]*timer),
		rejected: make(map[*goja.Promise]struct{}),
	}
	vm.SetPromiseRejectionTracker(r.trackRejection)

	if err := r.setupGlobals(href); err != nil {
		return nil, err
	}

	call, err := r.compileFunc(harness)
	if err != nil {
		return nil, err
	}
	r.call = call

	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse unavailable")
	}
	r.parse = parse

	return r, nil
}

func (r *runtime) setupGlobals(href *url.URL) error {
	vm := r.vm
	global := vm.GlobalObject()

	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if err := global.Set("window", global); err != nil {
		return err
	}
	if err := global.Set("self", global); err != nil {
		return err
	}

	console := vm.NewObject()
	for _, level := range []string{"log", "info", "debug", "warn", "error"} {
		if err := console.Set(level, r.consoleFunc(level)); err != nil {
			return err
		}
	}
	if err := global.Set("console", console); err != nil {
		return err
	}

	timers := map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":    r.setTimer(false),
		"setInterval":   r.setTimer(true),
		"clearTimeout":  r.clearTimer,
		"clearInterval": r.clearTimer,
	}
	for name, fn := range timers {
		if err := global.Set(name, fn); err != nil {
			return err
		}
	}

	navigator := vm.NewObject()
	_ = navigator.Set("userAgent", r.page.cfg.UserAgent)
	if err := global.Set("navigator", navigator); err != nil {
		return err
	}
	if err := global.Set("location", r.location(href)); err != nil {
		return err
	}
	if err := global.Set("document", r.dom.bind(vm, global)); err != nil {
		return err
	}

	_, err := vm.RunScript("prelude.js", prelude)
	return err
}

func (r *runtime) location(href *url.URL) *goja.Object {
	loc := r.vm.NewObject()
	fields := map[string]string{
		"href":     href.String(),
		"protocol": href.Scheme + ":",
		"host":     href.Host,
		"hostname": href.Hostname(),
		"port":     href.Port(),
		"pathname": href.EscapedPath(),
		"search":   "",
		"hash":     "",
		"origin":   href.Scheme + "://" + href.Host,
	}
	if href.RawQuery != "" {
		fields["search"] = "?" + href.RawQuery
	}
	if href.Fragment != "" {
		fields["hash"] = "#" + href.Fragment
	}
	if href.Scheme == "about" {
		fields["origin"] = "null"
	}
	for k, v := range fields {
		_ = loc.Set(k, v)
	}
	_ = loc.Set("toString", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(fields["href"])
	})
	return loc
}

func (r *runtime) compileFunc(src string) (goja.Callable, error) {
	v, err := r.vm.RunString(src)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("not a function")
	}
	return fn, nil
}

// runScript executes a page or init script. Exceptions are page errors,
// not navigation failures.
func (r *runtime) runScript(name, src string) {
	if _, err := r.vm.RunScript(name, src); err != nil {
		r.page.emitPageError(r.pageError(err))
	}
}

// evaluate runs src with JSON-encoded args and delivers exactly one result.
func (r *runtime) evaluate(src string, args []string, deliver func(interface{}, error)) {
	fn, err := r.vm.RunString("(" + src + "\n)")
	if err != nil {
		deliver(nil, r.evaluationError(err))
		return
	}

	values := make([]interface{}, len(args))
	for i, text := range args {
		v, err := r.parse(goja.Undefined(), r.vm.ToValue(text))
		if err != nil {
			deliver(nil, r.evaluationError(err))
			return
		}
		values[i] = v
	}

	ok := func(call goja.FunctionCall) goja.Value {
		arg := call.Argument(0)
		if goja.IsUndefined(arg) {
			deliver(nil, nil)
			return goja.Undefined()
		}
		var out interface{}
		if err := sonic.UnmarshalString(arg.String(), &out); err != nil {
			deliver(nil, fmt.Errorf("decode result: %w", err))
			return goja.Undefined()
		}
		deliver(out, nil)
		return goja.Undefined()
	}
	fail := func(call goja.FunctionCall) goja.Value {
		name, message, stack := describe(call.Argument(0))
		deliver(nil, &EvaluationError{Name: name, Message: message, Stack: stack})
		return goja.Undefined()
	}

	if _, err := r.call(goja.Undefined(), fn, r.vm.NewArray(values...), r.vm.ToValue(ok), r.vm.ToValue(fail)); err != nil {
		// Only reachable when the harness itself is interrupted
		deliver(nil, r.evaluationError(err))
	}
}

func (r *runtime) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.page.cfg.Console {
			return goja.Undefined()
		}
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = r.format(arg)
		}
		r.page.emitConsole(ConsoleMessage{
			Type: level,
			Text: strings.Join(parts, " "),
			Time: time.Now(),
		})
		return goja.Undefined()
	}
}

// format renders a console argument the way devtools would print it flat.
func (r *runtime) format(v goja.Value) string {
	obj, ok := v.(*goja.Object)
	if !ok {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(v); isFn {
		return v.String()
	}
	if obj.ClassName() == "Error" {
		return v.String()
	}
	if text, err := sonic.MarshalString(obj.Export()); err == nil {
		return text
	}
	return v.String()
}

func (r *runtime) setTimer(repeat bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			return r.vm.ToValue(0)
		}
		delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
		if delay < 0 {
			delay = 0
		}
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		r.nextTimer++
		id := r.nextTimer
		t := &timer{fn: fn, args: args, every: delay, repeat: repeat}
		r.timers[id] = t
		r.schedule(id, t)
		return r.vm.ToValue(id)
	}
}

func (r *runtime) schedule(id int64, t *timer) {
	t.t = time.AfterFunc(t.every, func() {
		r.page.loop.post(func() { r.fire(id) })
	})
}

func (r *runtime) fire(id int64) {
	if r.page.rt != r {
		return // page navigated away
	}
	t, ok := r.timers[id]
	if !ok {
		return
	}
	if !t.repeat {
		delete(r.timers, id)
	}

	if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
		r.page.emitPageError(r.pageError(err))
	}

	if t.repeat {
		if _, still := r.timers[id]; still {
			r.schedule(id, t)
		}
	}
}

func (r *runtime) clearTimer(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := r.timers[id]; ok {
		if t.t != nil {
			t.t.Stop()
		}
		delete(r.timers, id)
	}
	return goja.Undefined()
}

func (r *runtime) stopTimers() {
	for id, t := range r.timers {
		if t.t != nil {
			t.t.Stop()
		}
		delete(r.timers, id)
	}
}

func (r *runtime) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		r.rejected[p] = struct{}{}
		r.order = append(r.order, p)
	case goja.PromiseRejectionHandle:
		delete(r.rejected, p)
	}
}

// flushRejections reports promises still unhandled at the end of a loop turn.
func (r *runtime) flushRejections() {
	if len(r.order) == 0 {
		return
	}
	order := r.order
	r.order = nil
	for _, p := range order {
		if _, ok := r.rejected[p]; !ok {
			continue
		}
		delete(r.rejected, p)
		name, message, stack := describe(p.Result())
		r.page.emitPageError(&PageError{Name: name, Message: message, Stack: stack})
	}
}

func (r *runtime) pageError(err error) *PageError {
	name, message, stack := describeErr(err)
	return &PageError{Name: name, Message: message, Stack: stack}
}

func (r *runtime) evaluationError(err error) *EvaluationError {
	name, message, stack := describeErr(err)
	return &EvaluationError{Name: name, Message: message, Stack: stack}
}

func describeErr(err error) (name, message, stack string) {
	switch e := err.(type) {
	case *goja.Exception:
		name, message, stack = describe(e.Value())
		if stack == "" {
			stack = e.String()
		}
		return name, message, stack
	case *goja.InterruptedError:
		return "InterruptedError", fmt.Sprint(e.Value()), ""
	default:
		return "", err.Error(), ""
	}
}

// describe pulls name, message and stack out of a thrown JS value.
func describe(v goja.Value) (name, message, stack string) {
	if v == nil || goja.IsUndefined(v) {
		return "", "undefined", ""
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return "", v.String(), ""
	}
	name = stringProp(obj, "name")
	message = stringProp(obj, "message")
	stack = stringProp(obj, "stack")
	if name == "" && message == "" {
		message = v.String()
	}
	return name, message, stack
}

func stringProp(obj *goja.Object, key string) string {
	v := obj.Get(key)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
