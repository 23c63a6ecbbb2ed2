package script

import (
	lua "github.com/yuin/gopher-lua"
)

// installCallbacks registers the fixed host-facing function surface a
// profile script sees, per spec §4.C. Everything here is either a direct,
// synchronous call into Host, or a yield back to the scheduler tagged with
// a Yield value the scheduler knows how to resume.
func (s *State) installCallbacks() {
	reg := map[string]lua.LGFunction{
		"is_key_pressed": s.luaIsKeyPressed,
		"get_abs":        s.luaGetAbs,
		"get_abs_min":    s.luaGetAbsMin,
		"get_abs_max":    s.luaGetAbsMax,
		"press_key":      s.luaPressKey,
		"release_key":    s.luaReleaseKey,
		"move_rel":       s.luaMoveRel,
		"delay":          s.luaDelay,
		"cancel_delay":   s.luaCancelDelay,
		"start_thread":   s.luaStartThread,
		"join_thread":    s.luaJoinThread,
	}
	for name, fn := range reg {
		s.L.SetGlobal(name, s.L.NewFunction(fn))
	}
}

func argCode(L *lua.LState, n int) uint16 {
	return uint16(L.CheckNumber(n))
}

func (s *State) luaIsKeyPressed(L *lua.LState) int {
	L.Push(lua.LBool(s.host.IsKeyPressed(argCode(L, 1))))
	return 1
}

func (s *State) luaGetAbs(L *lua.LState) int {
	L.Push(lua.LNumber(s.host.GetAbs(argCode(L, 1))))
	return 1
}

func (s *State) luaGetAbsMin(L *lua.LState) int {
	L.Push(lua.LNumber(s.host.GetAbsMin(argCode(L, 1))))
	return 1
}

func (s *State) luaGetAbsMax(L *lua.LState) int {
	L.Push(lua.LNumber(s.host.GetAbsMax(argCode(L, 1))))
	return 1
}

func (s *State) luaPressKey(L *lua.LState) int {
	s.host.PressKey(argCode(L, 1))
	return 0
}

func (s *State) luaReleaseKey(L *lua.LState) int {
	s.host.ReleaseKey(argCode(L, 1))
	return 0
}

func (s *State) luaMoveRel(L *lua.LState) int {
	code := argCode(L, 1)
	delta := int32(L.CheckNumber(2))
	s.host.MoveRel(code, delta)
	return 0
}

// luaDelay suspends the calling coroutine until the given number of
// milliseconds has elapsed. The optional second argument, a boolean,
// marks the delay cancellable: a later cancel_delay against this task's id
// then wakes it early. Only callable from inside a scheduler task (a
// control handler or a start_thread body); called from the top-level chunk
// it behaves like any other gopher-lua yield-outside-a-coroutine error.
func (s *State) luaDelay(L *lua.LState) int {
	ms := int64(L.CheckNumber(1))
	cancellable := L.OptBool(2, false)
	kind := YieldDelay
	if cancellable {
		kind = YieldCancellableDelay
	}
	return L.Yield(yieldValues(Yield{Kind: kind, Millis: ms})...)
}

func (s *State) luaCancelDelay(L *lua.LState) int {
	id := int64(L.CheckNumber(1))
	L.Push(lua.LBool(s.host.CancelDelay(id)))
	return 1
}

// luaStartThread hands a function value to the scheduler, which wraps it
// in its own coroutine and queues it on the run queue (when called from a
// running task, it runs later in the same drain). Returns immediately with the new task's handle id; does not yield the caller.
func (s *State) luaStartThread(L *lua.LState) int {
	fn := L.CheckFunction(1)
	id := s.host.StartThread(fn)
	L.Push(lua.LNumber(id))
	return 1
}

// luaJoinThread suspends the calling coroutine until the task named by id
// finishes, or returns immediately if it already has.
func (s *State) luaJoinThread(L *lua.LState) int {
	id := int64(L.CheckNumber(1))
	alreadyDone, ok := s.host.JoinThread(id)
	if !ok {
		L.Push(lua.LBool(false))
		return 1
	}
	if alreadyDone {
		L.Push(lua.LBool(true))
		return 1
	}
	return L.Yield(yieldValues(Yield{Kind: YieldJoin, JoinID: id})...)
}

// yieldValues packs a Yield into the tagged (kind, millis, joinID) triple
// that crosses the Lua/Go boundary; the scheduler unpacks it symmetrically
// in Resume.
func yieldValues(y Yield) []lua.LValue {
	return []lua.LValue{
		lua.LNumber(y.Kind),
		lua.LNumber(y.Millis),
		lua.LNumber(y.JoinID),
	}
}

// UnpackYield is Resume's counterpart to yieldValues: it reads back the
// tagged triple a coroutine yielded.
func UnpackYield(vals []lua.LValue) Yield {
	var y Yield
	if len(vals) > 0 {
		y.Kind = YieldKind(lua.LVAsNumber(vals[0]))
	}
	if len(vals) > 1 {
		y.Millis = int64(lua.LVAsNumber(vals[1]))
	}
	if len(vals) > 2 {
		y.JoinID = int64(lua.LVAsNumber(vals[2]))
	}
	return y
}
