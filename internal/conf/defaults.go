// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "rainforest-sed")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "rainforest-sed.log")

	viper.SetDefault("data.traintppath", "input/train_tp.csv")
	viper.SetDefault("data.trainfppath", "input/train_fp.csv")
	viper.SetDefault("data.trainaudiopath", "input/train")
	viper.SetDefault("data.testaudiopath", "input/test")
	viper.SetDefault("data.samplesubmissionpath", "input/sample_submission.csv")
	viper.SetDefault("data.additionallabelpath", "")

	viper.SetDefault("audio.samplerate", 32000)
	viper.SetDefault("audio.clipduration", DefaultClipDuration)
	viper.SetDefault("audio.windowduration", 10.0)

	viper.SetDefault("mel.nfft", 2048)
	viper.SetDefault("mel.hoplength", 512)
	viper.SetDefault("mel.nmels", 128)
	viper.SetDefault("mel.fmin", 20.0)
	viper.SetDefault("mel.fmax", 16000.0)

	viper.SetDefault("pcen.gain", 0.98)
	viper.SetDefault("pcen.bias", 2.0)
	viper.SetDefault("pcen.power", 0.5)
	viper.SetDefault("pcen.timeconstant", 0.4)
	viper.SetDefault("pcen.eps", 1e-6)

	viper.SetDefault("image.size", 224)
	viper.SetDefault("image.width", 0)

	viper.SetDefault("dataset.kind", "spectrogram_mixup")
	viper.SetDefault("dataset.mixupprob", 0.5)
	viper.SetDefault("dataset.mixupalpha", 5.0)
	viper.SetDefault("dataset.floatlabel", true)
	viper.SetDefault("dataset.nolambda", false)
	viper.SetDefault("dataset.centering", false)
	viper.SetDefault("dataset.additionallabelvalue", 0.8)

	viper.SetDefault("training.epochs", 50)
	viper.SetDefault("training.batchsize", 32)
	viper.SetDefault("training.workers", 4)
	viper.SetDefault("training.seed", 1213)
	viper.SetDefault("training.learningrate", 0.01)

	viper.SetDefault("output.dir", "out")
	viper.SetDefault("output.databasepath", "out/runs.db")
}
