package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const (
	scenarioTypeName = "scenario"
	cardRefTypeName  = "card_ref"
)

// Scenario is a parsed script: a named, ordered list of steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one runner instruction with its raw arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// cardRef lets scripts chain render/expect/share calls onto the card a
// generate call produced without repeating its tag.
type cardRef struct {
	scenario *Scenario
	tag      string
}

// LoadScenarioFromFile runs a Lua script and extracts the Scenario it
// returns. The script gets a Scenario constructor and a Map helper table
// for building explicit shapes.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerScenarioType(state)
	registerCardRefType(state)
	registerScenarioConstructor(state)
	registerMapHelpers(state)
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerCardRefType(state *lua.State) {
	lua.NewMetaTable(state, cardRefTypeName)
	state.NewTable()
	lua.SetFunctions(state, cardRefMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

func registerMapHelpers(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, mapHelpers, 0)
	state.SetGlobal("Map")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

var mapHelpers = []lua.RegistryFunction{
	{Name: "circle", Function: circleHelper},
	{Name: "rect", Function: rectHelper},
	{Name: "polygon", Function: polygonHelper},
}

func circleHelper(state *lua.State) int {
	cx := lua.CheckInteger(state, 1)
	cy := lua.CheckInteger(state, 2)
	r := lua.CheckInteger(state, 3)
	state.NewTable()
	state.PushString("circle")
	state.SetField(-2, "type")
	state.PushInteger(cx)
	state.SetField(-2, "cx")
	state.PushInteger(cy)
	state.SetField(-2, "cy")
	state.PushInteger(r)
	state.SetField(-2, "r")
	return 1
}

func rectHelper(state *lua.State) int {
	x := lua.CheckInteger(state, 1)
	y := lua.CheckInteger(state, 2)
	width := lua.CheckInteger(state, 3)
	height := lua.CheckInteger(state, 4)
	state.NewTable()
	state.PushString("rect")
	state.SetField(-2, "type")
	state.PushInteger(x)
	state.SetField(-2, "x")
	state.PushInteger(y)
	state.SetField(-2, "y")
	state.PushInteger(width)
	state.SetField(-2, "width")
	state.PushInteger(height)
	state.SetField(-2, "height")
	return 1
}

func polygonHelper(state *lua.State) int {
	lua.CheckType(state, 1, lua.TypeTable)
	state.NewTable()
	state.PushString("polygon")
	state.SetField(-2, "type")
	state.PushValue(1)
	state.SetField(-2, "points")
	return 1
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "generate", Function: scenarioGenerate},
	{Name: "render", Function: scenarioRender},
	{Name: "expect", Function: scenarioExpect},
	{Name: "share", Function: scenarioShare},
}

var cardRefMethods = []lua.RegistryFunction{
	{Name: "render", Function: cardRefRender},
	{Name: "expect", Function: cardRefExpect},
	{Name: "share", Function: cardRefShare},
}

func scenarioGenerate(state *lua.State) int {
	scenario := checkScenario(state)
	data := optionalTable(state, 2)
	tag, _ := data["tag"].(string)
	if tag == "" {
		tag = fmt.Sprintf("card_%d", countSteps(scenario, "generate")+1)
		data["tag"] = tag
	}
	appendStep(scenario, "generate", data)

	ref := &cardRef{scenario: scenario, tag: tag}
	state.PushUserData(ref)
	lua.SetMetaTableNamed(state, cardRefTypeName)
	return 1
}

func scenarioRender(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(scenario, "render", tableToMap(state, 2))
	return 0
}

func scenarioExpect(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(scenario, "expect", tableToMap(state, 2))
	return 0
}

func scenarioShare(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(scenario, "share", tableToMap(state, 2))
	return 0
}

func cardRefRender(state *lua.State) int {
	return cardRefStep(state, "render")
}

func cardRefExpect(state *lua.State) int {
	return cardRefStep(state, "expect")
}

func cardRefShare(state *lua.State) int {
	return cardRefStep(state, "share")
}

// cardRefStep appends a step bound to the reference's tag and pushes the
// reference back so calls keep chaining.
func cardRefStep(state *lua.State, kind string) int {
	ud := lua.CheckUserData(state, 1, cardRefTypeName)
	ref, ok := ud.(*cardRef)
	if !ok || ref == nil {
		lua.ArgumentError(state, 1, "card reference expected")
		return 0
	}
	data := optionalTable(state, 2)
	data["tag"] = ref.tag
	appendStep(ref.scenario, kind, data)
	state.PushValue(1)
	return 1
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func countSteps(scenario *Scenario, kind string) int {
	count := 0
	for _, step := range scenario.Steps {
		if step.Kind == kind {
			count++
		}
	}
	return count
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	case lua.TypeUserData:
		return state.ToUserData(index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
