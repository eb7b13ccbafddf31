package generator

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
)

// Column describes a sandbox table column
type Column struct {
	Name       string
	DataType   string
	Nullable   bool
	EnumValues []string
}

// DataGenerator generates fake data based on column names and types
type DataGenerator struct {
	Faker  faker.Faker
	Rand   *rand.Rand
	Now    time.Time
	Logger *logrus.Logger
}

// NewDataGenerator creates a new data generator. Equal seeds yield equal values.
func NewDataGenerator(seed int64, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:  faker.NewWithSeed(rand.NewSource(seed)),
		Rand:   rand.New(rand.NewSource(seed)),
		Now:    time.Now(),
		Logger: logger,
	}
}

// GenerateRow generates one record for columns
func (dg *DataGenerator) GenerateRow(columns []Column) map[string]interface{} {
	row := make(map[string]interface{}, len(columns))
	for _, column := range columns {
		row[column.Name] = dg.GenerateData(column)
	}
	return row
}

// GenerateData generates data for a column based on its name and type
func (dg *DataGenerator) GenerateData(column Column) interface{} {
	// 10% chance of NULL for nullable columns
	if column.Nullable && dg.Rand.Float32() < 0.1 {
		return nil
	}

	columnName := strings.ToLower(column.Name)
	dataType := strings.ToLower(column.DataType)

	// Handle special column names
	if dataType == "varchar" || dataType == "text" || dataType == "char" {
		if strings.Contains(columnName, "email") {
			return dg.Faker.Internet().Email()
		} else if strings.Contains(columnName, "name") {
			if strings.Contains(columnName, "first") {
				return dg.Faker.Person().FirstName()
			} else if strings.Contains(columnName, "last") {
				return dg.Faker.Person().LastName()
			} else if strings.Contains(columnName, "user") {
				return dg.Faker.Internet().User()
			} else if strings.Contains(columnName, "company") {
				return dg.Faker.Company().Name()
			}
			return dg.Faker.Person().Name()
		} else if strings.Contains(columnName, "phone") {
			return dg.Faker.Phone().Number()
		} else if strings.Contains(columnName, "city") {
			return dg.Faker.Address().City()
		} else if strings.Contains(columnName, "country") {
			return dg.Faker.Address().Country()
		} else if strings.Contains(columnName, "url") {
			return dg.Faker.Internet().URL()
		} else if strings.Contains(columnName, "ip") {
			return dg.Faker.Internet().Ipv4()
		} else if strings.Contains(columnName, "uuid") {
			return dg.Faker.UUID().V4()
		} else if strings.Contains(columnName, "title") {
			return dg.Faker.Lorem().Sentence(4)
		}
	}

	// Generate data based on data type
	switch dataType {
	case "varchar", "char", "text":
		return dg.Faker.Lorem().Word()
	case "int", "tinyint", "smallint", "bigint":
		return dg.generateInteger(dataType)
	case "float", "double", "decimal":
		return dg.generateFloat()
	case "date":
		return dg.generateDateTime().Format("2006-01-02")
	case "datetime", "timestamp":
		return dg.generateDateTime()
	case "enum":
		return dg.generateEnum(column)
	case "json":
		return dg.generateJSON(column)
	case "boolean", "bool":
		return dg.Rand.Intn(2) == 1
	default:
		dg.Logger.Warningf("No specific generator for type %s, using default string", dataType)
		return dg.Faker.Lorem().Word()
	}
}

// generateInteger generates an integer value sized to the type
func (dg *DataGenerator) generateInteger(dataType string) interface{} {
	switch dataType {
	case "tinyint":
		return int64(dg.Rand.Intn(128))
	case "smallint":
		return int64(dg.Rand.Intn(32768))
	case "bigint":
		return dg.Rand.Int63()
	default:
		return int64(dg.Rand.Int31n(1000000))
	}
}

// generateFloat generates a float with two decimals
func (dg *DataGenerator) generateFloat() float64 {
	value := dg.Rand.Float64() * 1000
	return float64(int64(value*100)) / 100
}

// generateDateTime generates a datetime within the last 5 years
func (dg *DataGenerator) generateDateTime() time.Time {
	days := dg.Rand.Intn(365 * 5)
	seconds := dg.Rand.Intn(24 * 60 * 60)
	return dg.Now.
		AddDate(0, 0, -days).
		Add(-time.Duration(seconds) * time.Second).
		Truncate(time.Second)
}

// generateEnum picks one of the enum values
func (dg *DataGenerator) generateEnum(column Column) string {
	if len(column.EnumValues) == 0 {
		return ""
	}
	return column.EnumValues[dg.Rand.Intn(len(column.EnumValues))]
}

// generateJSON generates random JSON data
func (dg *DataGenerator) generateJSON(column Column) string {
	columnName := strings.ToLower(column.Name)

	var data interface{}
	if strings.Contains(columnName, "address") {
		data = map[string]interface{}{
			"street":  dg.Faker.Address().StreetAddress(),
			"city":    dg.Faker.Address().City(),
			"zipCode": dg.Faker.Address().PostCode(),
		}
	} else {
		data = map[string]interface{}{
			"source":  dg.Faker.Lorem().Word(),
			"version": fmt.Sprintf("%d.%d.%d", dg.Rand.Intn(10), dg.Rand.Intn(10), dg.Rand.Intn(10)),
		}
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		dg.Logger.Errorf("Error marshaling JSON: %v", err)
		return "{}"
	}
	return string(jsonBytes)
}
