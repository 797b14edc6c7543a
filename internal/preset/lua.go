package preset

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/orrery/orrery/internal/state"
)

// LoadDir evaluates every .lua file in dir inside one VM. Scripts register
// presets by calling the injected global:
//
//	preset("nightside", {
//	    rotationSpeed = 0.5,
//	    showOrbits = false,
//	    camera = { x = 0, y = 5, z = -30 },
//	    bodies = { earth = { visible = true, scale = 1.5 } },
//	})
//
// Fields a script omits fall back to the compiled-in defaults, so every
// registered preset is still a total snapshot. A missing dir is not an
// error; a script that fails to evaluate is.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read preset dir: %w", err)
	}

	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer vm.Close()
	vm.SetGlobal("preset", vm.NewFunction(r.luaRegister))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		r.log.Debug("loaded preset script", zap.String("file", path))
	}
	return nil
}

func (r *Registry) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	tbl := L.CheckTable(2)

	s := r.base()
	if v, ok := tbl.RawGetString("rotationSpeed").(lua.LNumber); ok && float32(v) > 0 {
		s.RotationSpeed = float32(v)
	}
	if v, ok := tbl.RawGetString("showOrbits").(lua.LBool); ok {
		s.ShowOrbits = bool(v)
	}
	if v, ok := tbl.RawGetString("showLabels").(lua.LBool); ok {
		s.ShowLabels = bool(v)
	}
	if v, ok := tbl.RawGetString("showBackgroundVideo").(lua.LBool); ok {
		s.ShowBackgroundVideo = bool(v)
	}
	if cam, ok := tbl.RawGetString("camera").(*lua.LTable); ok {
		s.CameraPosition = state.Vec3{
			X: luaF32(cam, "x", 0),
			Y: luaF32(cam, "y", 0),
			Z: luaF32(cam, "z", 0),
		}
	}
	if bodies, ok := tbl.RawGetString("bodies").(*lua.LTable); ok {
		bodies.ForEach(func(k, v lua.LValue) {
			id := state.BodyID(k.String())
			bt, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			bs, known := s.Bodies[id]
			if !known {
				r.log.Warn("preset script names unknown body",
					zap.String("preset", name), zap.String("body", string(id)))
				return
			}
			if vis, ok := bt.RawGetString("visible").(lua.LBool); ok {
				bs.Visible = bool(vis)
			}
			if sc, ok := bt.RawGetString("scale").(lua.LNumber); ok && float32(sc) > 0 {
				bs.Scale = float32(sc)
			}
			s.Bodies[id] = bs
		})
	}

	r.add(name, s)
	return 0
}

func luaF32(t *lua.LTable, key string, fallback float32) float32 {
	if v, ok := t.RawGetString(key).(lua.LNumber); ok {
		return float32(v)
	}
	return fallback
}
