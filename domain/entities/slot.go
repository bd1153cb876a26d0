package entities

// SlotType is the type of the value held in a Wren slot.
// The numeric values mirror WrenType.
type SlotType int32

const (
	SlotBool SlotType = iota
	SlotNum
	SlotForeign
	SlotList
	SlotMap
	SlotNull
	SlotString

	// SlotUnknown is an object the slot API cannot inspect, e.g. a class.
	SlotUnknown
)

var slotTypeNames = [...]string{
	SlotBool:    "Bool",
	SlotNum:     "Num",
	SlotForeign: "Foreign",
	SlotList:    "List",
	SlotMap:     "Map",
	SlotNull:    "Null",
	SlotString:  "String",
	SlotUnknown: "Unknown",
}

// String returns the Wren name of the type.
func (t SlotType) String() string {
	if t < 0 || int(t) >= len(slotTypeNames) {
		return "Invalid"
	}
	return slotTypeNames[t]
}
