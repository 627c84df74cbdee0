// Package pipeline 把请求体校验并整理成模型输入
package pipeline

import "cropclock/ml"

// Kind 字段类型
type Kind int

const (
	// Number 浮点数
	Number Kind = iota
	// Integer 整数
	Integer
	// Category 分类标签，按编码器转成整数写入特征向量
	Category
	// Label 分类标签，校验词表后以字符串形式交给模型
	Label
	// Text 自由文本
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "float"
	case Integer:
		return "int"
	case Category, Label, Text:
		return "string"
	default:
		return "unknown"
	}
}

// Field 请求字段
type Field struct {
	Name    string
	Kind    Kind
	Encoder string // Category/Label 字段使用的编码器
	Aux     bool   // 只校验，不进入特征向量
}

// Schema 有序字段列表，顺序即特征向量顺序
type Schema struct {
	Name   string
	Fields []Field
}

// Names 返回字段名
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// CropSchema 作物推荐: N, P, K, temperature, humidity, ph, rainfall
var CropSchema = Schema{
	Name: "crop",
	Fields: []Field{
		{Name: "N", Kind: Number},
		{Name: "P", Kind: Number},
		{Name: "K", Kind: Number},
		{Name: "temperature", Kind: Number},
		{Name: "humidity", Kind: Number},
		{Name: "ph", Kind: Number},
		{Name: "rainfall", Kind: Number},
	},
}

// PriceSchema 价格预测。Stock_kg 只参与总价计算，不进入特征向量。
var PriceSchema = Schema{
	Name: "price",
	Fields: []Field{
		{Name: "State", Kind: Category, Encoder: ml.FieldState},
		{Name: "Crop", Kind: Category, Encoder: ml.FieldCrop},
		{Name: "Season", Kind: Category, Encoder: ml.FieldSeason},
		{Name: "Month", Kind: Integer},
		{Name: "Stock_kg", Kind: Number, Aux: true},
		{Name: "Demand_Index", Kind: Number},
		{Name: "Storage_Cost_Index", Kind: Number},
	},
}

// FertilizerSchema 肥料推荐，按训练数据集的列顺序排列
var FertilizerSchema = Schema{
	Name: "fertilizer",
	Fields: []Field{
		{Name: "Temperature", Kind: Number},
		{Name: "Humidity", Kind: Number},
		{Name: "Soil_Moisture", Kind: Number},
		{Name: "Soil_Type", Kind: Category, Encoder: ml.FieldSoilType},
		{Name: "Crop_Type", Kind: Category, Encoder: ml.FieldCropType},
		{Name: "Nitrogen", Kind: Number},
		{Name: "Potassium", Kind: Number},
		{Name: "Phosphorus", Kind: Number},
	},
}

// NPKSchema 土壤养分估计，模型按字段名取值
var NPKSchema = Schema{
	Name: "npk",
	Fields: []Field{
		{Name: "soil_type", Kind: Label, Encoder: ml.FieldNPKSoilType},
		{Name: "prev_crop", Kind: Label, Encoder: ml.FieldNPKPrevCrop},
		{Name: "yield_level", Kind: Label, Encoder: ml.FieldYieldLevel},
		{Name: "tempC", Kind: Number},
		{Name: "humidity", Kind: Number},
		{Name: "rainfall", Kind: Number},
	},
}

// ChatSchema 聊天请求
var ChatSchema = Schema{
	Name:   "chat",
	Fields: []Field{{Name: "message", Kind: Text}},
}
