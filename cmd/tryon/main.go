package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/chaos-io/tryon/config"
	"github.com/chaos-io/tryon/tryon"
	"github.com/chaos-io/tryon/util"
)

func main() {
	photo := flag.String("photo", "", "用户照片，本地路径或 http(s)/data URL")
	top := flag.String("top", "", "上衣图片")
	bottom := flag.String("bottom", "", "下装图片")
	shoes := flag.String("shoes", "", "鞋图片")
	var accessories multiFlag
	flag.Var(&accessories, "accessory", "配饰图片，可重复")
	out := flag.String("out", "./output/outfit.png", "输出 PNG 路径")
	skin := flag.String("skin", "rgb", "肤色判定：rgb | hsv")
	flag.Parse()

	if *photo == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.Default()
	cfg.Engine.Skin = *skin
	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Fatal("Invalid options: ", err)
	}

	if err := run(ctx, opts, *photo, *top, *bottom, *shoes, accessories, *out); err != nil {
		log.Fatal("Failed to compose outfit: ", err)
	}
	log.Println("Done! Outfit:", *out)
}

func run(ctx context.Context, opts tryon.Options, photo, top, bottom, shoes string, accessories []string, out string) error {
	defer util.Trace("compose outfit")()

	base, err := util.LoadSource(photo)
	if err != nil {
		return err
	}

	session := tryon.NewSession(tryon.Profile{ID: "cli"}, tryon.WithOptions(opts))
	if err := session.LoadBaseImage(ctx, base); err != nil {
		return err
	}
	if regions, ok := session.Regions(); ok {
		log.Printf("body %+v", regions.Body)
	}

	var sel tryon.Selection
	pick := func(path string, c tryon.Category) error {
		if path == "" {
			return nil
		}
		src, err := util.LoadSource(path)
		if err != nil {
			return err
		}
		sel.Toggle(tryon.Item{ID: path, Title: path, Image: src, Category: c}, c)
		return nil
	}
	for _, p := range []struct {
		path string
		c    tryon.Category
	}{{top, tryon.Top}, {bottom, tryon.Bottom}, {shoes, tryon.Shoes}} {
		if err := pick(p.path, p.c); err != nil {
			return err
		}
	}
	for _, a := range accessories {
		if err := pick(a, tryon.Accessory); err != nil {
			return err
		}
	}
	if sel.Len() == 0 {
		return fmt.Errorf("nothing to try on, pass at least one of -top -bottom -shoes -accessory")
	}

	if err := session.Render(ctx, sel); err != nil {
		return err
	}
	for _, l := range session.Layers() {
		log.Printf("%s %s at %+v", l.Category, l.ItemID, l.Placement)
	}

	data, err := session.ExportOutfit()
	if err != nil {
		return err
	}
	return util.WriteFile(out, data)
}

// multiFlag 可重复的字符串参数
type multiFlag []string

func (m *multiFlag) String() string {
	return fmt.Sprint(*m)
}

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
