// Command slave-metrics-gen parses the `slave:"..."` struct tags on
// pkg/supervisor.SlaveStats and emits pkg/supervisor/generated_metrics.go,
// the Prometheus Desc/supplier table consumed by SlaveCollector.
//
// Adapted from the teacher's cmd/prom-metrics-gen, which does the same
// for TCP_INFO fields tagged `tcpi:"..."`; the tag grammar and codegen
// shape are unchanged, only the target struct and output package differ.
package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log"
	"os"
	"reflect"
	"strings"
	"text/template"
)

const (
	inputPath  = "pkg/supervisor/stats.go"
	outputPath = "pkg/supervisor/generated_metrics.go"
)

// Metric is one field of SlaveStats to render into the template.
type Metric struct {
	Name      string
	FieldName string
	Help      string
	Type      string
}

func main() {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, inputPath, nil, parser.ParseComments)
	if err != nil {
		log.Fatal(err)
	}

	var metrics []Metric
	ast.Inspect(node, func(n ast.Node) bool {
		s, ok := n.(*ast.StructType)
		if !ok {
			return true
		}

		for _, f := range s.Fields.List {
			if f.Tag == nil {
				continue
			}
			tag := reflect.StructTag(strings.Trim(f.Tag.Value, "`"))
			slaveTag, ok := tag.Lookup("slave")
			if !ok {
				continue
			}

			var metric Metric
			metric.FieldName = f.Names[0].Name
			tagString := slaveTag
			for tagString != "" {
				i := strings.Index(tagString, "=")
				if i == -1 {
					log.Printf("malformed tag (missing =): %s [%s]", tagString, metric.FieldName)
					break
				}
				key := tagString[:i]
				tagString = tagString[i+1:]

				var value string
				if strings.HasPrefix(tagString, "'") {
					tagString = tagString[1:]
					j := strings.Index(tagString, "'")
					if j == -1 {
						log.Printf("malformed tag (missing '): %s [%s]", tagString, metric.FieldName)
						break
					}
					value = tagString[:j]
					tagString = tagString[j+1:]
					if strings.HasPrefix(tagString, ",") {
						tagString = tagString[1:]
					}
				} else {
					j := strings.Index(tagString, ",")
					if j == -1 {
						value = tagString
						tagString = ""
					} else {
						value = tagString[:j]
						tagString = tagString[j+1:]
					}
				}

				switch key {
				case "name":
					metric.Name = value
				case "prom_type":
					switch value {
					case "gauge":
						metric.Type = "Gauge"
					case "counter":
						metric.Type = "Counter"
					}
				case "prom_help":
					metric.Help = value
				}
			}
			metrics = append(metrics, metric)
		}
		return false
	})

	t, err := template.ParseFiles("cmd/slave-metrics-gen/template.tmpl")
	if err != nil {
		log.Fatal(err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, struct{ Metrics []Metric }{Metrics: metrics}); err != nil {
		log.Fatal(err)
	}

	if err := os.WriteFile(outputPath, buf.Bytes(), 0644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Generated %s\n", outputPath)
}
