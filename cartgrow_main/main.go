package main

import (
	"encoding/json"
	"flag"
	"os"
	"path"
	"runtime"
	"runtime/pprof"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ptaranov/cartgrow/cgl"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

var logger *zap.Logger

func decodeConfig(srcConfig string, out interface{}) {
	file, err := os.Open(srcConfig)
	cgl.HandleError(err)
	defer func() { cgl.HandleError(file.Close()) }()

	decoder := json.NewDecoder(file)
	cgl.HandleError(decoder.Decode(out))
}

type TrainConfig struct {
	FileNameTrainFeatures string `json:"filename_train_features"`
	FileNameTrainLabels   string `json:"filename_train_labels"`
	FileNameTestFeatures  string `json:"filename_test_features"`
	FileNameTestLabels    string `json:"filename_test_labels"`
	FileNameSchema        string `json:"filename_schema"`
	FileNameModel         string `json:"filename_model"`
	Algorithm             string `json:"algorithm"` // "tree" or "forest"
	MaxNodes              int    `json:"max_nodes"`
	NodeSize              int    `json:"node_size"`
	Mtry                  int    `json:"mtry"`
	SplitRule             string `json:"split_rule"`
	Trees                 int    `json:"trees"`
	ThreadsNum            int    `json:"threads_num"`
	Seed                  int64  `json:"seed"`
}

//accuracy compares a prediction column with the reference labels.
func accuracy(prediction *mat.Dense, labels []int) float64 {
	correct := 0
	for i, y := range labels {
		if int(prediction.At(i, 0)) == y {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

func loadSchema(filename string) []cgl.Attribute {
	if filename == "" {
		return nil
	}
	attributes, err := cgl.ReadSchema(filename)
	if err != nil {
		logger.Fatal("can't read attribute schema", zap.String("file", filename), zap.Error(err))
	}
	return attributes
}

func train(srcConfig string) {
	var trainConfig TrainConfig
	decodeConfig(srcConfig, &trainConfig)

	matrix := cgl.ReadCMatrix(trainConfig.FileNameTrainFeatures, trainConfig.FileNameTrainLabels)
	attributes := loadSchema(trainConfig.FileNameSchema)

	rule, err := cgl.ParseSplitRule(trainConfig.SplitRule)
	if err != nil {
		logger.Fatal("bad split rule", zap.Error(err))
	}

	logger.Info("training",
		zap.String("algorithm", trainConfig.Algorithm),
		zap.Int("samples", cgl.Height(matrix.Features)),
		zap.Int("max_nodes", trainConfig.MaxNodes),
		zap.String("split_rule", rule.String()))

	var testPrediction func(features *mat.Dense) *mat.Dense

	switch trainConfig.Algorithm {
	case "forest":
		forest, err := cgl.NewForest(cgl.ForestParams{
			Matrix:     matrix,
			Attributes: attributes,
			Trees:      trainConfig.Trees,
			MaxNodes:   trainConfig.MaxNodes,
			NodeSize:   trainConfig.NodeSize,
			Mtry:       trainConfig.Mtry,
			Rule:       rule,
			Workers:    trainConfig.ThreadsNum,
			Seed:       trainConfig.Seed,
		})
		if err != nil {
			logger.Fatal("training failed", zap.Error(err))
		}
		logger.Info("forest trained",
			zap.Int("trees", len(forest.Trees)),
			zap.Float64("oob_error", forest.OOB))
		forest.Save(trainConfig.FileNameModel)
		testPrediction = forest.PredictAll
	case "tree", "":
		tree, err := cgl.NewTree(cgl.TreeParams{
			Matrix:     matrix,
			Attributes: attributes,
			MaxNodes:   trainConfig.MaxNodes,
			NodeSize:   trainConfig.NodeSize,
			Mtry:       trainConfig.Mtry,
			Rule:       rule,
			Threads:    trainConfig.ThreadsNum,
		})
		if err != nil {
			logger.Fatal("training failed", zap.Error(err))
		}
		logger.Info("tree trained", zap.Int("max_depth", tree.MaxDepth()))
		tree.Save(trainConfig.FileNameModel)
		testPrediction = tree.PredictAll
	default:
		logger.Fatal("unknown algorithm", zap.String("algorithm", trainConfig.Algorithm))
	}

	if trainConfig.FileNameTestFeatures != "" {
		test := cgl.ReadCMatrix(trainConfig.FileNameTestFeatures, trainConfig.FileNameTestLabels)
		logger.Info("holdout evaluated",
			zap.Float64("accuracy", accuracy(testPrediction(test.Features), test.Labels)))
	}
}

type PredictConfig struct {
	FileNameFeatures   string `json:"filename_features"`
	FileNameModel      string `json:"filename_model"`
	FileNamePrediction string `json:"filename_prediction"`
	Algorithm          string `json:"algorithm"`
}

func predict(srcConfig string) {
	var predictConfig PredictConfig
	decodeConfig(srcConfig, &predictConfig)

	features := cgl.ReadNpy(predictConfig.FileNameFeatures)

	var prediction *mat.Dense
	if predictConfig.Algorithm == "forest" {
		forest := cgl.LoadForest(predictConfig.FileNameModel)
		prediction = forest.PredictAll(features)
	} else {
		tree := cgl.LoadTree(predictConfig.FileNameModel)
		prediction = tree.PredictAll(features)
	}

	dst, err := os.Create(predictConfig.FileNamePrediction)
	cgl.HandleError(err)
	defer func() { cgl.HandleError(dst.Close()) }()
	cgl.HandleError(npyio.Write(dst, prediction))

	logger.Info("prediction written",
		zap.String("file", predictConfig.FileNamePrediction),
		zap.Int("samples", cgl.Height(prediction)))
}

type GraphConfig struct {
	FileNameModel     string `json:"filename_model"`
	FigureType        string `json:"figure_type"`
	PicturesDirectory string `json:"pictures_directory"`
	FileNameFigure    string `json:"filename_figure"`
}

func graph(srcConfig string) {
	var graphConfig GraphConfig
	decodeConfig(srcConfig, &graphConfig)

	tree := cgl.LoadTree(graphConfig.FileNameModel)
	tree.RenderTree(path.Join(graphConfig.PicturesDirectory, graphConfig.FileNameFigure), graphConfig.FigureType)
	logger.Info("tree rendered", zap.String("file", graphConfig.FileNameFigure))
}

type ImportanceConfig struct {
	FileNameModel  string `json:"filename_model"`
	Algorithm      string `json:"algorithm"`
	FileNameFigure string `json:"filename_figure"`
}

//importanceChart renders the variable-importance vector as a bar chart.
func importanceChart(srcConfig string) {
	var importanceConfig ImportanceConfig
	decodeConfig(srcConfig, &importanceConfig)

	var imp []float64
	var attributes []cgl.Attribute
	if importanceConfig.Algorithm == "forest" {
		forest := cgl.LoadForest(importanceConfig.FileNameModel)
		imp = forest.Importance()
		attributes = forest.Trees[0].Attributes
	} else {
		tree := cgl.LoadTree(importanceConfig.FileNameModel)
		imp = tree.Importance()
		attributes = tree.Attributes
	}

	p := plot.New()
	p.Title.Text = "Variable importance"
	p.Y.Label.Text = "accumulated gain"

	bars, err := plotter.NewBarChart(plotter.Values(imp), vg.Points(18))
	cgl.HandleError(err)
	p.Add(bars)

	names := make([]string, len(attributes))
	for j, attribute := range attributes {
		names[j] = attribute.Name
	}
	p.NominalX(names...)

	cgl.HandleError(p.Save(8*vg.Inch, 4*vg.Inch, importanceConfig.FileNameFigure))
	logger.Info("importance chart written", zap.String("file", importanceConfig.FileNameFigure))
}

func main() {
	runMode := flag.String("mode", "train", "you can select either 'train', 'predict', 'graph' or 'importance' modes")
	config := flag.String("config", "cartgrow_config.json", "a config file for the run of the program")
	memprofile := flag.String("memprofile", "", "write memory profile to `file`")

	flag.Parse()

	logger, _ = zap.NewProduction()
	defer logger.Sync()

	map[string]func(string){
		"train":      train,
		"predict":    predict,
		"graph":      graph,
		"importance": importanceChart,
	}[*runMode](*config)

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		cgl.HandleError(err)
		defer func() { cgl.HandleError(f.Close()) }()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Fatal("could not write memory profile", zap.Error(err))
		}
	}
}
