// ds3 manages disk images holding the block filesystem: it can create and
// inspect images, copy files in and out, and serve an image over HTTP.
package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v2"

	"github.com/gunrock-web/ds3fs/disk"
	"github.com/gunrock-web/ds3fs/fs"
	"github.com/gunrock-web/ds3fs/layout"
	"github.com/gunrock-web/ds3fs/service"
)

func main() {
	app := cli.App{
		Name:  "ds3",
		Usage: "Manage and serve block filesystem disk images",
		Commands: []*cli.Command{
			{
				Name:      "mkfs",
				Usage:     "Create and format a new disk image",
				Action:    runMkfs,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "inodes", Value: 64, Usage: "number of inodes"},
					&cli.IntFlag{Name: "data", Value: 128, Usage: "number of data blocks"},
				},
			},
			{
				Name:      "bits",
				Usage:     "Print the superblock and allocation bitmaps",
				Action:    runBits,
				ArgsUsage: "IMAGE_FILE",
			},
			{
				Name:      "cat",
				Usage:     "Print a file's block list and contents",
				Action:    runCat,
				ArgsUsage: "IMAGE_FILE INODE",
			},
			{
				Name:      "ls",
				Usage:     "List a directory",
				Action:    runLs,
				ArgsUsage: "IMAGE_FILE PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: "plain", Usage: "output format: plain or csv"},
				},
			},
			{
				Name:      "cp",
				Usage:     "Copy a host file into an existing inode",
				Action:    runCp,
				ArgsUsage: "IMAGE_FILE SRC_FILE DST_INODE",
			},
			{
				Name:      "touch",
				Usage:     "Create an empty regular file",
				Action:    runTouch,
				ArgsUsage: "IMAGE_FILE PARENT_INODE NAME",
			},
			{
				Name:      "rm",
				Usage:     "Remove a directory entry",
				Action:    runRm,
				ArgsUsage: "IMAGE_FILE PARENT_INODE NAME",
			},
			{
				Name:      "serve",
				Usage:     "Serve an image over HTTP",
				Action:    runServe,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
					&cli.StringFlag{Name: "prefix", Value: "/ds3/", Usage: "path prefix"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func openImage(context *cli.Context) (*disk.Disk, *fs.FileSystem, error) {
	if context.Args().Len() < 1 {
		return nil, nil, fmt.Errorf("missing disk image argument")
	}
	d, err := disk.Open(context.Args().Get(0))
	if err != nil {
		return nil, nil, err
	}
	return d, fs.New(d), nil
}

func runMkfs(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("usage: ds3 mkfs IMAGE_FILE")
	}
	numInodes := context.Int("inodes")
	numData := context.Int("data")

	file, err := os.Create(context.Args().Get(0))
	if err != nil {
		return err
	}
	defer file.Close()

	numBlocks := fs.RequiredBlocks(numInodes, numData)
	if err := file.Truncate(int64(numBlocks) * layout.BlockSize); err != nil {
		return err
	}

	return fs.Format(disk.New(file, numBlocks), numInodes, numData)
}

func runBits(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	super, err := filesystem.ReadSuperBlock()
	if err != nil {
		return err
	}
	inodeBitmap, err := filesystem.ReadInodeBitmap(super)
	if err != nil {
		return err
	}
	dataBitmap, err := filesystem.ReadDataBitmap(super)
	if err != nil {
		return err
	}

	fmt.Printf("Super\n")
	fmt.Printf("inode_region_addr %d\n", super.InodeRegionAddr)
	fmt.Printf("inode_region_len %d\n", super.InodeRegionLen)
	fmt.Printf("num_inodes %d\n", super.NumInodes)
	fmt.Printf("data_region_addr %d\n", super.DataRegionAddr)
	fmt.Printf("data_region_len %d\n", super.DataRegionLen)
	fmt.Printf("num_data %d\n", super.NumData)
	fmt.Printf("\n")

	fmt.Printf("Inode bitmap\n")
	for idx := 0; idx < (int(super.NumInodes)+7)/8; idx++ {
		fmt.Printf("%d ", inodeBitmap[idx])
	}
	fmt.Printf("\n\nData bitmap\n")
	for idx := 0; idx < (int(super.NumData)+7)/8; idx++ {
		fmt.Printf("%d ", dataBitmap[idx])
	}
	fmt.Printf("\n")
	return nil
}

func runCat(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	if context.Args().Len() != 2 {
		return fmt.Errorf("usage: ds3 cat IMAGE_FILE INODE")
	}
	inum, err := strconv.Atoi(context.Args().Get(1))
	if err != nil {
		return err
	}

	inode, err := filesystem.Stat(inum)
	if err != nil {
		return err
	}
	if inode.Type == layout.Directory {
		return fmt.Errorf("inode %d is a directory", inum)
	}

	fmt.Printf("File blocks\n")
	for blockNum := 0; blockNum < layout.SizeToBlocks(int(inode.Size)); blockNum++ {
		fmt.Printf("%d\n", inode.Direct[blockNum])
	}
	fmt.Printf("\n")

	data, err := filesystem.Read(inum, int(inode.Size))
	if err != nil {
		return err
	}
	fmt.Printf("File data\n")
	os.Stdout.Write(data)
	return nil
}

// lsRow is one directory entry in `ds3 ls --format csv` output.
type lsRow struct {
	Inum int    `csv:"inum"`
	Name string `csv:"name"`
	Type string `csv:"type"`
	Size int    `csv:"size"`
}

func runLs(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	if context.Args().Len() != 2 {
		return fmt.Errorf("usage: ds3 ls IMAGE_FILE PATH")
	}

	inum, parent, err := filesystem.Resolve(context.Args().Get(1), layout.RootInode)
	if err != nil {
		return err
	}
	inode, err := filesystem.Stat(inum)
	if err != nil {
		return err
	}

	// A regular file lists as its single entry in the parent directory.
	if inode.Type == layout.RegularFile {
		entries, err := filesystem.ReadDir(parent)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if int(entry.Inum) == inum {
				fmt.Printf("%d\t%s\n", entry.Inum, entry.NameString())
				return nil
			}
		}
		return fmt.Errorf("entry for inode %d not found", inum)
	}

	entries, err := filesystem.ReadDir(inum)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].NameString() < entries[j].NameString()
	})

	if context.String("format") == "csv" {
		rows := make([]*lsRow, 0, len(entries))
		for _, entry := range entries {
			inode, err := filesystem.Stat(int(entry.Inum))
			if err != nil {
				return err
			}
			kind := "file"
			if inode.Type == layout.Directory {
				kind = "dir"
			}
			rows = append(rows, &lsRow{
				Inum: int(entry.Inum),
				Name: entry.NameString(),
				Type: kind,
				Size: int(inode.Size),
			})
		}

		out, err := gocsv.MarshalString(&rows)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	for _, entry := range entries {
		fmt.Printf("%d\t%s\n", entry.Inum, entry.NameString())
	}
	return nil
}

func runCp(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	if context.Args().Len() != 3 {
		return fmt.Errorf("usage: ds3 cp IMAGE_FILE SRC_FILE DST_INODE")
	}
	data, err := os.ReadFile(context.Args().Get(1))
	if err != nil {
		return err
	}
	inum, err := strconv.Atoi(context.Args().Get(2))
	if err != nil {
		return err
	}

	_, err = filesystem.Write(inum, data)
	return err
}

func runTouch(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	if context.Args().Len() != 3 {
		return fmt.Errorf("usage: ds3 touch IMAGE_FILE PARENT_INODE NAME")
	}
	parent, err := strconv.Atoi(context.Args().Get(1))
	if err != nil {
		return err
	}

	_, err = filesystem.Create(parent, layout.RegularFile, context.Args().Get(2))
	return err
}

func runRm(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	if context.Args().Len() != 3 {
		return fmt.Errorf("usage: ds3 rm IMAGE_FILE PARENT_INODE NAME")
	}
	parent, err := strconv.Atoi(context.Args().Get(1))
	if err != nil {
		return err
	}

	return filesystem.Unlink(parent, context.Args().Get(2))
}

func runServe(context *cli.Context) error {
	d, filesystem, err := openImage(context)
	if err != nil {
		return err
	}
	defer d.Close()

	addr := context.String("addr")
	prefix := context.String("prefix")
	log.Printf("serving %s under %s on %s", context.Args().Get(0), prefix, addr)
	return service.New(filesystem, prefix).ListenAndServe(addr)
}
