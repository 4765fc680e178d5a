package config

import "path/filepath"

// FilesConfig names the download directory and the files in it.
type FilesConfig struct {
	DownloadDir    string `yaml:"download_dir"`
	SourceFilename string `yaml:"source_filename"`
	OutputFilename string `yaml:"output_filename"`
}

// SourcePath returns the full path of the downloaded export.
func (f FilesConfig) SourcePath() string {
	return filepath.Join(f.DownloadDir, f.SourceFilename)
}

// OutputPath returns the full path of the processed file.
func (f FilesConfig) OutputPath() string {
	return filepath.Join(f.DownloadDir, f.OutputFilename)
}
