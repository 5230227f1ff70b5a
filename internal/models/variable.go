package models

// VarType is the declared type of a variable value.
type VarType string

const (
	VarTypeString VarType = "str"
	VarTypeInt    VarType = "int"
	VarTypeBool   VarType = "bool"
	VarTypeFloat  VarType = "float"
	VarTypeDict   VarType = "dict"
	VarTypeList   VarType = "list"
	VarTypeNone   VarType = "none"
)

var VarTypes = []VarType{
	VarTypeString,
	VarTypeInt,
	VarTypeBool,
	VarTypeFloat,
	VarTypeDict,
	VarTypeList,
	VarTypeNone,
}

func (t VarType) IsValid() bool {
	for _, v := range VarTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Variable is a named deployment parameter. Name is unique per account and
// Key is the configuration key the value is injected under.
type Variable struct {
	ID    Ref     `json:"id,omitempty"`
	Name  string  `json:"name"`
	Key   string  `json:"key"`
	Value string  `json:"masked_value"`
	Type  VarType `json:"var_type"`
}
