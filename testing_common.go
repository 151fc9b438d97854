package defrag

import (
	"os"
	"path"
)

// AssetPath is the directory containing test-fixture volume images,
// resolved relative to GOPATH the same way the teacher locates its own
// test assets.
var AssetPath = ""

func init() {
	goPath := os.Getenv("GOPATH")
	projectPath := path.Join(goPath, "src", "github.com", "cluster-sweep", "godefrag")
	AssetPath = path.Join(projectPath, "test", "assets")
}
