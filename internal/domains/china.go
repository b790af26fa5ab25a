// Package domains classifies names for upstream pool selection and hosted
// aliasing.
package domains

import "strings"

// IsChinaDomain reports whether name is expected to resolve best against a
// domestic resolver pool: any ".cn" name, an exact match against the
// embedded list, or a strict ".<entry>" suffix match (the dot is required,
// so "xcn.com" never matches "cn.com"). Entries containing '*' only ever
// match by literal equality.
func IsChinaDomain(name string) bool {
	name = strings.ToLower(name)
	if strings.HasSuffix(name, ".cn") {
		return true
	}
	for _, domain := range chinaDomains {
		if name == domain || strings.HasSuffix(name, "."+domain) {
			return true
		}
	}
	return false
}

var chinaDomains = []string{
	"07073.com",
	"10010.com",
	"100ye.com",
	"114la.com",
	"115.com",
	"120ask.com",
	"126.com",
	"126.net",
	"1616.net",
	"163.com",
	"17173.com",
	"1778.com",
	"178.com",
	"17u.com",
	"19lou.com",
	"1o26.com",
	"1ting.com",
	"21cn.com",
	"2345.com",
	"265.com",
	"265g.com",
	"28.com",
	"28tui.com",
	"2hua.com",
	"2mdn.net",
	"315che.com",
	"3366.com",
	"360buy.com",
	"360buyimg.com",
	"360doc.com",
	"36kr.com",
	"39.net",
	"3dmgame.com",
	"4399.com",
	"4738.com",
	"500wan.com",
	"51.com",
	"51.la",
	"5173.com",
	"51auto.com",
	"51buy.com",
	"51cto.com",
	"51fanli.com",
	"51job.com",
	"52kmh.com",
	"52pk.net",
	"52tlbb.com",
	"53kf.com",
	"55bbs.com",
	"55tuan.com",
	"56.com",
	"58.com",
	"591hx.com",
	"5d6d.net",
	"61.com",
	"70e.com",
	"777wyx.com",
	"778669.com",
	"7c.com",
	"7k7k.com",
	"88db.com",
	"91.com",
	"99bill.com",
	"a135.net",
	"abang.com",
	"abchina.com",
	"ad1111.com",
	"admin5.com",
	"adnxs.com",
	"adobe.com",
	"adroll.com",
	"ads8.com",
	"adsame.com",
	"adsonar.com",
	"adtechus.com",
	"aibang.com",
	"aifang.com",
	"aili.com",
	"aipai.com",
	"aizhan.com",
	"ali213.net",
	"alibaba.com",
	"alicdn.com",
	"aliexpress.com",
	"alimama.com",
	"alipay.com",
	"alipayobjects.com",
	"alisoft.com",
	"alivv.com",
	"aliyun.com",
	"allyes.com",
	"amazon.com",
	"anjuke.com",
	"anzhi.com",
	"aol.com",
	"apple.com",
	"arpg2.com",
	"atdmt.com",
	"b2b168.com",
	"babytree.com",
	"baidu.com",
	"baihe.com",
	"baixing.com",
	"bankcomm.com",
	"baomihua.com",
	"bdimg.com",
	"bdstatic.com",
	"bendibao.com",
	"betrad.com",
	"bilibili.tv",
	"bing.com",
	"bitauto.com",
	"blog.163.com",
	"blogchina.com",
	"blueidea.com",
	"bluekai.com",
	"booksky.org",
	"caixin.com",
	"ccb.com",
	"ccidnet.com",
	"cctv*.com",
	"china.com",
	"chinabyte.com",
	"chinahr.com",
	"chinanews.com",
	"chinaunix.net",
	"chinaw3.com",
	"chinaz.com",
	"chuangelm.com",
	"ci123.com",
	"cmbchina.com",
	"cnbeta.com",
	"cnblogs.com",
	"cncn.com",
	"cnhubei.com",
	"cnki.net",
	"cnmo.com",
	"cnxad.com",
	"cnzz.com",
	"cocoren.com",
	"compete.com",
	"comsenz.com",
	"coo8.com",
	"cqnews.net",
	"crsky.com",
	"csdn.net",
	"ct10000.com",
	"ctrip.com",
	"dangdang.com",
	"daqi.com",
	"dayoo.com",
	"dbank.com",
	"ddmap.com",
	"dedecms.com",
	"dh818.com",
	"diandian.com",
	"dianping.com",
	"discuz.net",
	"doc88.com",
	"docin.com",
	"donews.com",
	"dospy.com",
	"douban.com",
	"douban.fm",
	"doubleclick.com",
	"doubleclick.net",
	"duba.net",
	"duote.com",
	"duowan.com",
	"dzwww.com",
	"eastday.com",
	"eastmoney.com",
	"ebay.com",
	"elong.com",
	"ename.net",
	"etao.com",
	"exam8.com",
	"eye.rs",
	"fantong.com",
	"fastcdn.com",
	"fblife.com",
	"fengniao.com",
	"fenzhi.com",
	"flickr.com",
	"fobshanghai.com",
	"ftuan.com",
	"funshion.com",
	"fx120.net",
	"game3737.com",
	"gamersky.com",
	"gamestlbb.com",
	"gamesville.com",
	"ganji.com",
	"gfan.com",
	"gongchang.com",
	"google-analytics.com",
	"gougou.com",
	"gtimg.com",
	"hao123.com",
	"haodf.com",
	"harrenmedianetwork.com",
	"hc360.com",
	"hefei.cc",
	"hf365.com",
	"hiapk.com",
	"hichina.com",
	"homeinns.com",
	"hotsales.net",
	"house365.com",
	"huaban.com",
	"huanqiu.com",
	"hudong.com",
	"hupu.com",
	"iask.com",
	"iciba.com",
	"icson.com",
	"ifeng.com",
	"iloveyouxi.com",
	"im286.com",
	"imanhua.com",
	"img.cctvpic.com",
	"imrworldwide.com",
	"invitemedia.com",
	"ip138.com",
	"ipinyou.com",
	"iqilu.com",
	"iqiyi.com",
	"irs01.com",
	"irs01.net",
	"it168.com",
	"iteye.com",
	"iyaya.com",
	"jb51.net",
	"jiathis.com",
	"jiayuan.com",
	"jing.fm",
	"jinti.com",
	"jqw.com",
	"jumei.com",
	"jxedt.com",
	"jysq.net",
	"kaixin001.com",
	"kandian.com",
	"kdnet.net",
	"kimiss.com",
	"ku6.com",
	"ku6cdn.com",
	"ku6img.com",
	"kuaidi100.com",
	"kugou.com",
	"l99.com",
	"lady8844.com",
	"lafaso.com",
	"lashou.com",
	"legolas-media.com",
	"lehecai.com",
	"leho.com",
	"letv.com",
	"liebiao.com",
	"lietou.com",
	"linezing.com",
	"linkedin.com",
	"live.com",
	"longhoo.net",
	"lusongsong.com",
	"lxdns.com",
	"lycos.com",
	"lygo.com",
	"m18.com",
	"m1905.com",
	"made-in-china.com",
	"makepolo.com",
	"mangocity.com",
	"manzuo.com",
	"mapbar.com",
	"mathtag.com",
	"mediaplex.com",
	"mediav.com",
	"meilele.com",
	"meilishuo.com",
	"meishichina.com",
	"meituan.com",
	"meizu.com",
	"miaozhen.com",
	"microsoft.com",
	"miercn.com",
	"mlt01.com",
	"mmstat.com",
	"mnwan.com",
	"mogujie.com",
	"mookie1.com",
	"moonbasa.com",
	"mop.com",
	"mosso.com",
	"mplife.com",
	"msn.com",
	"mtime.com",
	"mumayi.com",
	"mydrivers.com",
	"net114.com",
	"netease.com",
	"newsmth.net",
	"nipic.com",
	"nowec.com",
	"nuomi.com",
	"oadz.com",
	"oeeee.com",
	"onetad.com",
	"onlinedown.net",
	"onlylady.com",
	"oschina.net",
	"otwan.com",
	"paipai.com",
	"paypal.com",
	"pchome.net",
	"pcpop.com",
	"pengyou.com",
	"php100.com",
	"phpwind.net",
	"pingan.com",
	"pixlr.com",
	"pp.cc",
	"ppstream.com",
	"pptv.com",
	"ptlogin2.qq.com",
	"pubmatic.com",
	"q150.com",
	"qianlong.com",
	"qidian.com",
	"qingdaonews.com",
	"qire123.com",
	"qiushibaike.com",
	"qiyou.com",
	"qjy168.com",
	"qq.com",
	"qq937.com",
	"qstatic.com",
	"quantserve.com",
	"qunar.com",
	"rakuten.co.jp",
	"readnovel.com",
	"renren.com",
	"rtbidder.net",
	"scanscout.com",
	"scorecardresearch.com",
	"sdo.com",
	"seowhy.com",
	"serving-sys.com",
	"sf-express.com",
	"shangdu.com",
	"si.kz",
	"sina.com",
	"sinahk.net",
	"sinajs.com",
	"smzdm.com",
	"snyu.com",
	"sodu.org",
	"sogou.com",
	"sohu.com",
	"soku.com",
	"sootoo.com",
	"soso.com",
	"soufun.com",
	"sourceforge.net",
	"staticsdo.com",
	"stockstar.com",
	"sttlbb.com",
	"suning.com",
	"szhome.com",
	"sznews.com",
	"tangdou.com",
	"tanx.com",
	"tao123.com",
	"taobao.com",
	"taobaocdn.com",
	"tdimg.com",
	"tenpay.com",
	"tgbus.com",
	"theplanet.com",
	"thethirdmedia.com",
	"tiancity.com",
	"tianji.com",
	"tiao8.info",
	"tiexue.net",
	"titan24.com",
	"tmall.com",
	"tom.com",
	"toocle.com",
	"tremormedia.com",
	"tuan800.com",
	"tudou.com",
	"tudouui.com",
	"tui18.com",
	"tuniu.com",
	"twcczhu.com",
	"u17.com",
	"ucjoy.com",
	"ulink.cc",
	"uniontoufang.com",
	"up2c.com",
	"uuu9.com",
	"uuzu.com",
	"vancl.com",
	"verycd.com",
	"vipshop.com",
	"vizu.com",
	"vjia.com",
	"weibo.com",
	"weiphone.com",
	"west263.com",
	"whlongda.com",
	"wrating.com",
	"wumii.com",
	"xiami.com",
	"xiaomi.com",
	"xiazaiba.com",
	"xici.net",
	"xinhuanet.com",
	"xinnet.com",
	"xitek.com",
	"xiu.com",
	"xunlei.com",
	"xyxy.net",
	"yahoo.co.jp",
	"yahoo.com",
	"yaolan.com",
	"yesky.com",
	"yieldmanager.com",
	"yihaodian.com",
	"yingjiesheng.com",
	"yinyuetai.com",
	"yiqifa.com",
	"ykimg.com",
	"ynet.com",
	"yoka.com",
	"yolk7.com",
	"youboy.com",
	"youdao.com",
	"yougou.com",
	"youku.com",
	"youshang.com",
	"ytimg.com",
	"yupoo.com",
	"yxlady.com",
	"yyets.com",
	"zhaodao123.com",
	"zhaopin.com",
	"zhenai.com",
	"zhibo8.cc",
	"zhihu.com",
	"zhubajie.com",
	"zongheng.com",
	"zoosnet.net",
	"zqgame.com",
	"ztgame.com",
	"zx915.com",
}
